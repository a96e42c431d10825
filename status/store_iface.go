package status

import (
	"context"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/store"
)

// Store is the slice of store.Store the Reporter needs.
type Store interface {
	GetFile(ctx context.Context, fileID string) (model.FileMeta, error)
	GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error)
	ListFiles(ctx context.Context, page, pageSize int, statusFilter *model.Status, sortBy, order string) (int64, []model.FileMeta, error)
}

var _ Store = (*store.Store)(nil)
