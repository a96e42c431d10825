package config

import (
	"os"
	"path/filepath"
)

// Config is the process-wide configuration, loaded from the environment
// with sane defaults. The upload engine itself reads chunk_size from the
// Store (see store.Store.GetConfig); this struct covers everything the
// process needs before it can even reach the Store.
type Config struct {
	BaseDir     string
	Port        string
	UploadsDir  string
	DatabaseURL string
	LogFilePath string

	// Column sets for upload_file_meta / upload_progress, read from the
	// environment. Nothing in the process consults them: startup marks the
	// store initialized once AutoMigrate succeeds, without comparing
	// columns against these sets.
	ExpectedColumnsUploadFileMeta string
	ExpectedColumnsUploadProgress string
}

func LoadConfig() (*Config, error) {
	var err error
	cfg := &Config{
		BaseDir:    "./",
		Port:       "8080",
		UploadsDir: "uploads",
	}

	cfg.BaseDir, err = os.Getwd()
	if err != nil {
		cfg.BaseDir = "./"
	}
	cfg.UploadsDir = filepath.Join(cfg.BaseDir, "uploads")

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		cfg.UploadsDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		cfg.LogFilePath = v
	}
	cfg.ExpectedColumnsUploadFileMeta = os.Getenv("EXPECTED_COLUMNS_UPLOAD_FILE_META")
	cfg.ExpectedColumnsUploadProgress = os.Getenv("EXPECTED_COLUMNS_UPLOAD_PROGRESS")

	return cfg, nil
}
