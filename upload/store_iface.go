package upload

import (
	"context"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/store"
)

// Store is the slice of store.Store the Planner, Writer, and Assembler
// need. Accepting the interface here (rather than *store.Store directly)
// follows the same Querier-interface seam the file.cheap chunked-upload
// handler uses around its DB layer, and lets the engine's tests run
// against an in-memory fake instead of a live Postgres instance.
type Store interface {
	CheckInitialized(ctx context.Context) error
	ChunkSizeConfig(ctx context.Context) (int64, error)
	Register(ctx context.Context, fileID, filename string, totalSize int64, expectedDigest string, chunks []store.ChunkSpec, now int64) error
	GetFile(ctx context.Context, fileID string) (model.FileMeta, error)
	GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error)
	UpdateChunk(ctx context.Context, fileID string, startOffset, uploadedSize int64, chunkDigest string, now int64) error
	SumUploaded(ctx context.Context, fileID string) (int64, error)
	TransitionStatus(ctx context.Context, fileID string, from, to model.Status, filePath *string, now int64) (bool, error)
}

var _ Store = (*store.Store)(nil)
