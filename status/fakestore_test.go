package status

import (
	"context"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/uploaderr"
)

type fakeStore struct {
	files  map[string]model.FileMeta
	chunks map[string][]model.ChunkProgress
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: map[string]model.FileMeta{}, chunks: map[string][]model.ChunkProgress{}}
}

func (f *fakeStore) GetFile(ctx context.Context, fileID string) (model.FileMeta, error) {
	fm, ok := f.files[fileID]
	if !ok {
		return model.FileMeta{}, uploaderr.New(uploaderr.NotFound, "FILE_NOT_FOUND", "unknown file_id")
	}
	return fm, nil
}

func (f *fakeStore) GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error) {
	return f.chunks[fileID], nil
}

func (f *fakeStore) ListFiles(ctx context.Context, page, pageSize int, statusFilter *model.Status, sortBy, order string) (int64, []model.FileMeta, error) {
	var rows []model.FileMeta
	for _, fm := range f.files {
		if statusFilter != nil && model.Status(fm.Status) != *statusFilter {
			continue
		}
		rows = append(rows, fm)
	}
	return int64(len(rows)), rows, nil
}

var _ Store = (*fakeStore)(nil)
