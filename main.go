package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rorocorp/uploadcore/auth"
	"github.com/rorocorp/uploadcore/config"
	"github.com/rorocorp/uploadcore/db"
	"github.com/rorocorp/uploadcore/handlers"
	"github.com/rorocorp/uploadcore/logger"
	"github.com/rorocorp/uploadcore/status"
	"github.com/rorocorp/uploadcore/store"
	"github.com/rorocorp/uploadcore/upload"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.L.Fatal().Err(err).Msg("load config")
	}
	if err := logger.Init(cfg.LogFilePath); err != nil {
		logger.L.Fatal().Err(err).Msg("init logger")
	}
	if err := os.MkdirAll(cfg.UploadsDir, 0755); err != nil {
		logger.L.Fatal().Err(err).Str("dir", cfg.UploadsDir).Msg("create uploads dir")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L.Fatal().Err(err).Msg("connect to store")
	}
	defer database.Close()
	if err := database.MarkInitialized(ctx); err != nil {
		logger.L.Fatal().Err(err).Msg("mark store initialized")
	}

	st := store.New(database.Pool, database.Gorm)
	assembler := &upload.Assembler{Store: st, UploadsDir: cfg.UploadsDir}
	writer := &upload.Writer{Store: st, Assembler: assembler, UploadsDir: cfg.UploadsDir}
	planner := &upload.Planner{Store: st}
	reporter := &status.Reporter{Store: st}
	h := &handlers.Handlers{Planner: planner, Writer: writer, Reporter: reporter}

	router := gin.Default()
	router.Use(gin.Logger(), gin.Recovery())
	router.GET("/health", handlers.Health)

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://sc.rorocorp.org", "https://apisc.rorocorp.org"},
		AllowMethods:     []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodHead, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-XSRF-TOKEN", "X-CSRF-TOKEN", "Accept", "X-Requested-With", "Authorization", "X-File-ID", "X-Start-Offset", "Content-Range"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	apiGroup := router.Group("/api")
	{
		uploadsGroup := apiGroup.Group("")
		uploadsGroup.Use(auth.Authorize())
		{
			uploadsGroup.POST("/submit_metadata", h.SubmitMetadata)
			uploadsGroup.POST("/upload", h.UploadChunk)
			uploadsGroup.GET("/upload_status/:file_id", h.FileStatus)
			uploadsGroup.GET("/uploaded_files", h.ListFiles)
		}

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", auth.RegisterHandler)
			authGroup.POST("/login", auth.LoginHandler)
			authGroup.GET("/checksession", auth.SessionCheckHandler)
		}
	}

	apiGroup.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(204)
	})

	addr := "0.0.0.0:" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logger.L.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.L.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error().Err(err).Msg("server shutdown error")
	}
}
