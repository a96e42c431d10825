package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rorocorp/uploadcore/logger"
)

type User struct {
	Email    string
	Username string
	Password string
	UserID   string
}
type Session struct {
	SessionToken string
	CSRFToken    string
	expiryTime   time.Time
	user         *User
}

// hashtable to store the users logged in currently
var Sessions = map[string]Session{}
var Users = map[string]*User{} // map of pointers to user obj's

// ownedFiles links a session's user to the file_ids it registered via
// /submit_metadata. The upload engine is keyed only by file_id and has no
// notion of users, so this is the one place in the tree that tracks the
// association; handlers records into it instead of growing a user column
// on FileMeta.
var ownedFiles = map[string]map[string]struct{}{}
var ownedMu sync.Mutex

// RecordFileOwnership associates fileID with userID. The handlers package
// calls this after a SubmitMetadata call made under an authorized session.
func RecordFileOwnership(userID, fileID string) {
	if userID == "" || fileID == "" {
		return
	}
	ownedMu.Lock()
	defer ownedMu.Unlock()
	set, ok := ownedFiles[userID]
	if !ok {
		set = map[string]struct{}{}
		ownedFiles[userID] = set
	}
	set[fileID] = struct{}{}
}

// OwnsFile reports whether userID registered fileID.
func OwnsFile(userID, fileID string) bool {
	ownedMu.Lock()
	defer ownedMu.Unlock()
	_, ok := ownedFiles[userID][fileID]
	return ok
}

func RegisterHandler(context *gin.Context) {
	email := context.PostForm("email")
	username := context.PostForm("username")
	password := context.PostForm("password")
	if len(email) < 8 || len(password) < 8 {
		er := http.StatusNotAcceptable
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}

	if _, ok := Users[email]; ok {
		er := http.StatusConflict
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		logger.L.Error().Err(err).Str("email", email).Msg("hash password")
		er := http.StatusInternalServerError
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}
	Users[email] = &User{
		Email:    email,
		Username: username,
		Password: hashedPassword,
		UserID:   uuid.NewString(),
	}
	context.JSON(http.StatusOK, gin.H{
		"message": "User created successfully",
	})
	logger.L.Info().Str("email", email).Str("username", username).Msg("user registered")
}

func LoginHandler(context *gin.Context) {
	email := context.PostForm("email")
	password := context.PostForm("password")
	if len(email) < 8 || len(password) < 8 {
		er := http.StatusNotAcceptable
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}
	_, userExist := Users[email]
	if !userExist {
		er := http.StatusNotFound
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}

	if !checkPasswordHash(password, Users[email].Password) {
		er := http.StatusUnauthorized
		http.Error(context.Writer, http.StatusText(er), er)
		return
	}

	logger.L.Info().Str("email", email).Msg("user logged in")

	sessionToken := generateToken(32)
	csrfToken := generateToken(32)

	context.SetCookie("session_token", sessionToken, 3600, "/", "rorocorp.org", false, true)
	context.SetCookie("csrf_token", csrfToken, 3600, "/", "rorocorp.org", false, false)

	context.SetCookie("session_token", sessionToken, 3600, "/", "localhost", false, true)
	context.SetCookie("csrf_token", csrfToken, 3600, "/", "localhost", false, false)
	//max age is how many seconds it remains active. Not the time

	Sessions[sessionToken] = Session{
		SessionToken: sessionToken,
		user:         Users[email],
		CSRFToken:    csrfToken,
		expiryTime:   time.Now().Add(24 * time.Hour),
	}

	context.JSON(http.StatusOK, gin.H{
		"message": "User logged in successfully",
	})
}
