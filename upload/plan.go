// Package upload implements the Chunk Planner (C2), Chunk Writer (C3), and
// Assembler & Verifier (C4).
package upload

import (
	"context"

	"github.com/google/uuid"

	"github.com/rorocorp/uploadcore/sanitize"
	"github.com/rorocorp/uploadcore/store"
	"github.com/rorocorp/uploadcore/uploaderr"
)

// ChunkSpec is one planned chunk, returned to the caller and used to seed
// the Store's ChunkProgress rows.
type ChunkSpec struct {
	StartOffset int64 `json:"start_offset"`
	EndOffset   int64 `json:"end_offset"`
	ChunkSize   int64 `json:"chunk_size"`
}

// Plan is what RegisterFile returns: everything the client needs to start
// uploading chunks.
type Plan struct {
	FileID      string      `json:"file_id"`
	Filename    string      `json:"filename"`
	TotalSize   int64       `json:"total_size"`
	ChunkSize   int64       `json:"chunk_size"`
	TotalChunks int         `json:"total_chunks"`
	Chunks      []ChunkSpec `json:"chunks"`
}

// Planner is the chunk planner.
type Planner struct {
	Store Store
	Now   func() int64
}

// RegisterFile sanitizes filename_raw, partitions [0, totalSize) into
// chunk_size-sized ranges, generates a fresh file_id, and registers the
// whole plan atomically via Store.Register.
func (p *Planner) RegisterFile(ctx context.Context, filenameRaw string, totalSize int64, expectedDigest string) (*Plan, error) {
	if err := p.Store.CheckInitialized(ctx); err != nil {
		return nil, err
	}
	if totalSize < 1 {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "INVALID_TOTAL_SIZE", "total_size must be >= 1")
	}
	if expectedDigest == "" {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "MISSING_CHECKSUM", "checksum is required")
	}
	filename := sanitize.Filename(filenameRaw)
	if filename == "" {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "INVALID_FILENAME", "sanitized filename is empty")
	}

	chunkSize, err := p.Store.ChunkSizeConfig(ctx)
	if err != nil {
		return nil, err
	}

	n := (totalSize + chunkSize - 1) / chunkSize
	chunks := make([]ChunkSpec, 0, n)
	for i := int64(0); i < n; i++ {
		start := i * chunkSize
		end := (i+1)*chunkSize - 1
		if end > totalSize-1 {
			end = totalSize - 1
		}
		chunks = append(chunks, ChunkSpec{
			StartOffset: start,
			EndOffset:   end,
			ChunkSize:   end - start + 1,
		})
	}

	fileID := uuid.NewString()
	storeChunks := make([]store.ChunkSpec, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = store.ChunkSpec{StartOffset: c.StartOffset, EndOffset: c.EndOffset, ChunkSize: c.ChunkSize}
	}

	if err := p.Store.Register(ctx, fileID, filename, totalSize, expectedDigest, storeChunks, p.now()); err != nil {
		return nil, err
	}

	return &Plan{
		FileID:      fileID,
		Filename:    filename,
		TotalSize:   totalSize,
		ChunkSize:   chunkSize,
		TotalChunks: len(chunks),
		Chunks:      chunks,
	}, nil
}

func (p *Planner) now() int64 {
	if p.Now != nil {
		return p.Now()
	}
	return defaultNow()
}
