package upload

import (
	"context"
	"sync"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/store"
	"github.com/rorocorp/uploadcore/uploaderr"
)

// fakeStore is an in-memory Store used to exercise the Planner, Writer, and
// Assembler without a live Postgres instance.
type fakeStore struct {
	mu          sync.Mutex
	initialized bool
	chunkSize   int64
	files       map[string]model.FileMeta
	chunks      map[string][]model.ChunkProgress
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		initialized: true,
		chunkSize:   16,
		files:       map[string]model.FileMeta{},
		chunks:      map[string][]model.ChunkProgress{},
	}
}

func (f *fakeStore) CheckInitialized(ctx context.Context) error {
	if !f.initialized {
		return uploaderr.New(uploaderr.FailedPrecondition, "SYSTEM_NOT_INITIALIZED", "store schema is not ready")
	}
	return nil
}

func (f *fakeStore) ChunkSizeConfig(ctx context.Context) (int64, error) {
	return f.chunkSize, nil
}

func (f *fakeStore) Register(ctx context.Context, fileID, filename string, totalSize int64, expectedDigest string, chunks []store.ChunkSpec, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.files[fileID]; exists {
		return uploaderr.New(uploaderr.AlreadyExists, "FILE_ID_EXISTS", "file_id already registered")
	}
	f.files[fileID] = model.FileMeta{
		FileID:         fileID,
		Filename:       filename,
		TotalSize:      totalSize,
		ExpectedDigest: expectedDigest,
		Status:         int(model.StatusRegistered),
		LastUpdated:    now,
	}
	rows := make([]model.ChunkProgress, len(chunks))
	for i, c := range chunks {
		rows[i] = model.ChunkProgress{
			FileID:      fileID,
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			ChunkSize:   c.ChunkSize,
			LastUpdated: now,
		}
	}
	f.chunks[fileID] = rows
	return nil
}

func (f *fakeStore) GetFile(ctx context.Context, fileID string) (model.FileMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fm, ok := f.files[fileID]
	if !ok {
		return model.FileMeta{}, uploaderr.New(uploaderr.NotFound, "FILE_NOT_FOUND", "unknown file_id")
	}
	return fm, nil
}

func (f *fakeStore) GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.ChunkProgress, len(f.chunks[fileID]))
	copy(out, f.chunks[fileID])
	return out, nil
}

func (f *fakeStore) UpdateChunk(ctx context.Context, fileID string, startOffset, uploadedSize int64, chunkDigest string, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.chunks[fileID]
	for i := range rows {
		if rows[i].StartOffset == startOffset {
			rows[i].UploadedSize = uploadedSize
			rows[i].ChunkDigest = chunkDigest
			rows[i].LastUpdated = now
			return nil
		}
	}
	return uploaderr.New(uploaderr.NotFound, "CHUNK_NOT_FOUND", "no chunk at that start_offset")
}

func (f *fakeStore) SumUploaded(ctx context.Context, fileID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, c := range f.chunks[fileID] {
		total += c.UploadedSize
	}
	return total, nil
}

func (f *fakeStore) TransitionStatus(ctx context.Context, fileID string, from, to model.Status, filePath *string, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fm, ok := f.files[fileID]
	if !ok {
		return false, uploaderr.New(uploaderr.NotFound, "FILE_NOT_FOUND", "unknown file_id")
	}
	if model.Status(fm.Status) != from {
		return false, nil
	}
	fm.Status = int(to)
	if filePath != nil {
		fm.FilePath = *filePath
	}
	fm.LastUpdated = now
	f.files[fileID] = fm
	return true, nil
}

var _ Store = (*fakeStore)(nil)
