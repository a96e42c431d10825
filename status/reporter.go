// Package status is the Status Reporter: read-only queries over
// the Store, plus a timestamp clock for the paused/uploading heuristic.
package status

import (
	"context"

	"github.com/rorocorp/uploadcore/model"
)

// StaleSeconds is the liveness threshold: a file with no chunk activity for
// this long is reported paused rather than uploading. Display heuristic
// only; it does not affect durability or state.
const StaleSeconds = 60

type Reporter struct {
	Store Store
	Now   func() int64
}

// ChunkView is the per-chunk detail included in uploading/paused responses.
type ChunkView struct {
	StartOffset  int64  `json:"start_offset"`
	EndOffset    int64  `json:"end_offset"`
	ChunkSize    int64  `json:"chunk_size"`
	UploadedSize int64  `json:"uploaded_size"`
	ChunkDigest  string `json:"chunk_digest"`
	LastUpdated  int64  `json:"last_updated"`
}

// FileStatusView is the file_status response.
type FileStatusView struct {
	FileID      string      `json:"file_id"`
	StatusLabel string      `json:"status"`
	Chunks      []ChunkView `json:"chunks,omitempty"`
}

// FileStatus computes status_label.
func (r *Reporter) FileStatus(ctx context.Context, fileID string) (*FileStatusView, error) {
	fm, err := r.Store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	switch model.Status(fm.Status) {
	case model.StatusProcessing:
		return &FileStatusView{FileID: fileID, StatusLabel: "processing"}, nil
	case model.StatusCompleted:
		return &FileStatusView{FileID: fileID, StatusLabel: "completed"}, nil
	}

	chunks, err := r.Store.GetChunks(ctx, fileID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	paused := true
	views := make([]ChunkView, 0, len(chunks))
	for _, c := range chunks {
		if now-c.LastUpdated < StaleSeconds {
			paused = false
		}
		views = append(views, ChunkView{
			StartOffset:  c.StartOffset,
			EndOffset:    c.EndOffset,
			ChunkSize:    c.ChunkSize,
			UploadedSize: c.UploadedSize,
			ChunkDigest:  c.ChunkDigest,
			LastUpdated:  c.LastUpdated,
		})
	}

	label := "uploading"
	if paused {
		label = "paused"
	}
	return &FileStatusView{FileID: fileID, StatusLabel: label, Chunks: views}, nil
}

// FileListing is one row of ListFiles's response.
type FileListing struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	TotalSize      int64  `json:"total_size"`
	ExpectedDigest string `json:"expected_digest"`
	Status         string `json:"status"`
	FilePath       string `json:"file_path,omitempty"`
	LastUpdated    int64  `json:"last_updated"`
}

// ListFiles backs the paginated /uploaded_files listing.
// sortBy/order fall back to id/asc on unknown values (validated by
// store.ListFiles).
func (r *Reporter) ListFiles(ctx context.Context, page, pageSize int, statusFilter *model.Status, sortBy, order string) (int64, []FileListing, error) {
	total, rows, err := r.Store.ListFiles(ctx, page, pageSize, statusFilter, sortBy, order)
	if err != nil {
		return 0, nil, err
	}
	out := make([]FileListing, len(rows))
	for i, row := range rows {
		out[i] = FileListing{
			FileID:         row.FileID,
			Filename:       row.Filename,
			TotalSize:      row.TotalSize,
			ExpectedDigest: row.ExpectedDigest,
			Status:         model.Status(row.Status).String(),
			FilePath:       row.FilePath,
			LastUpdated:    row.LastUpdated,
		}
	}
	return total, out, nil
}

func (r *Reporter) now() int64 {
	if r.Now != nil {
		return r.Now()
	}
	return defaultNow()
}
