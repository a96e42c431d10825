package handlers

import (
	"context"
	"sync"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/store"
	"github.com/rorocorp/uploadcore/uploaderr"
)

// fakeEngine satisfies both upload.Store and status.Store so the handler
// tests can exercise the full request path without a Postgres instance.
type fakeEngine struct {
	mu        sync.Mutex
	chunkSize int64
	files     map[string]model.FileMeta
	chunks    map[string][]model.ChunkProgress
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		chunkSize: 1024,
		files:     map[string]model.FileMeta{},
		chunks:    map[string][]model.ChunkProgress{},
	}
}

func (f *fakeEngine) CheckInitialized(ctx context.Context) error { return nil }

func (f *fakeEngine) ChunkSizeConfig(ctx context.Context) (int64, error) { return f.chunkSize, nil }

func (f *fakeEngine) Register(ctx context.Context, fileID, filename string, totalSize int64, expectedDigest string, chunks []store.ChunkSpec, now int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[fileID] = model.FileMeta{FileID: fileID, Filename: filename, TotalSize: totalSize, ExpectedDigest: expectedDigest, Status: int(model.StatusRegistered), LastUpdated: now}
	rows := make([]model.ChunkProgress, len(chunks))
	for i, c := range chunks {
		rows[i] = model.ChunkProgress{FileID: fileID, StartOffset: c.StartOffset, EndOffset: c.EndOffset, ChunkSize: c.ChunkSize, LastUpdated: now}
	}
	f.chunks[fileID] = rows
	return nil
}

func (f *fakeEngine) GetFile(ctx context.Context, fileID string) (model.FileMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fm, ok := f.files[fileID]
	if !ok {
		return model.FileMeta{}, uploaderr.New(uploaderr.NotFound, "FILE_NOT_FOUND", "unknown file_id")
	}
	return fm, nil
}

func (f *fakeEngine) GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks[fileID], nil
}

func (f *fakeEngine) UpdateChunk(ctx context.Context, fileID string, startOffset, uploadedSize int64, chunkDigest string, now int64) error {
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

func (f *fakeEngine) SumUploaded(ctx context.Context, fileID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total int64
	for _, c := range f.chunks[fileID] {
		total += c.UploadedSize
	}
	return total, nil
}

func (f *fakeEngine) TransitionStatus(ctx context.Context, fileID string, from, to model.Status, filePath *string, now int64) (bool, error) {
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

func (f *fakeEngine) ListFiles(ctx context.Context, page, pageSize int, statusFilter *model.Status, sortBy, order string) (int64, []model.FileMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []model.FileMeta
	for _, fm := range f.files {
		if statusFilter != nil && model.Status(fm.Status) != *statusFilter {
			continue
		}
		rows = append(rows, fm)
	}
	return int64(len(rows)), rows, nil
}
