// Package model defines the durable row shapes of the upload engine. They
// are also the GORM models db.Connect migrates; the store package talks
// to the same tables through pgx, by name, so the column set here is the
// schema's source of truth.
package model

// Status is FileMeta's lifecycle stage (status only advances, never
// regresses).
type Status int

const (
	StatusRegistered Status = 0
	StatusProcessing Status = 1
	StatusCompleted  Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusRegistered:
		return "registered"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// FileMeta is one registered file.
type FileMeta struct {
	FileID         string `gorm:"column:file_id;primaryKey;type:varchar(64)"`
	Filename       string `gorm:"column:filename;type:varchar(512);not null"`
	TotalSize      int64  `gorm:"column:total_size;not null"`
	ExpectedDigest string `gorm:"column:expected_digest;type:varchar(64);not null"`
	Status         int    `gorm:"column:status;not null;default:0"`
	FilePath       string `gorm:"column:file_path;type:varchar(1024)"`
	LastUpdated    int64  `gorm:"column:last_updated;not null"`
}

func (FileMeta) TableName() string { return "upload_file_meta" }

// ChunkProgress is one chunk of one file.
type ChunkProgress struct {
	FileID       string `gorm:"column:file_id;primaryKey;type:varchar(64)"`
	StartOffset  int64  `gorm:"column:start_offset;primaryKey"`
	EndOffset    int64  `gorm:"column:end_offset;not null"`
	ChunkSize    int64  `gorm:"column:chunk_size;not null"`
	UploadedSize int64  `gorm:"column:uploaded_size;not null;default:0"`
	ChunkDigest  string `gorm:"column:chunk_digest;type:varchar(64)"`
	LastUpdated  int64  `gorm:"column:last_updated;not null"`
}

func (ChunkProgress) TableName() string { return "upload_progress" }

// SystemConfig is a key/value row.
type SystemConfig struct {
	ConfigKey   string `gorm:"column:config_key;primaryKey;type:varchar(128)"`
	ConfigValue string `gorm:"column:config_value;type:varchar(1024);not null"`
}

func (SystemConfig) TableName() string { return "system_config" }

const (
	ConfigKeyChunkSize         = "chunk_size"
	ConfigKeySystemInitialized = "system_initialized"

	DefaultChunkSize = 1048576

	// SystemInitializedValue is the sentinel value of system_initialized
	// that gates every mutating operation.
	SystemInitializedValue = "success"
)
