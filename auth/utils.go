package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rorocorp/uploadcore/logger"
)

// bcryptCost trades session-login latency for brute-force resistance; named
// here (rather than the teacher's bare literal 10) since it now sits next
// to the rest of the tree's named tunables (status.StaleSeconds,
// model.DefaultChunkSize).
const bcryptCost = 10

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func generateToken(length int) string {
	arr := make([]byte, length)
	if _, err := rand.Read(arr); err != nil {
		logger.L.Error().Err(err).Msg("generate session token")
	}
	return base64.URLEncoding.EncodeToString(arr)
}

func (s Session) IsExpired() bool {
	return s.expiryTime.Before(time.Now())
}
