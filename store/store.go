// Package store is the durable, transactional persistence layer for file
// metadata, per-chunk progress, and system config.
//
// Every operation except ListFiles talks to Postgres directly through pgx
// with bound parameters — no string interpolation — closing the
// SQL-injection open question about a prior implementation's
// fetch_upload_progress. ListFiles goes through gorm; its ORDER BY clause is
// formatted from an allow-listed column and direction.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"

	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/uploaderr"
)

type Store struct {
	pool *pgxpool.Pool
	gdb  *gorm.DB
}

func New(pool *pgxpool.Pool, gdb *gorm.DB) *Store {
	return &Store{pool: pool, gdb: gdb}
}

// ChunkSpec is the shape the Chunk Planner hands Register for each chunk
// row it wants created alongside the FileMeta row.
type ChunkSpec struct {
	StartOffset int64
	EndOffset   int64
	ChunkSize   int64
}

const uniqueViolation = "23505"

// Register inserts FileMeta (status=REGISTERED) and all ChunkProgress rows
// in a single transaction. Fails with AlreadyExists on file_id
// collision.
func (s *Store) Register(ctx context.Context, fileID, filename string, totalSize int64, expectedDigest string, chunks []ChunkSpec, now int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "begin register transaction", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO upload_file_meta (file_id, filename, total_size, expected_digest, status, file_path, last_updated)
		VALUES ($1, $2, $3, $4, $5, '', $6)
	`, fileID, filename, totalSize, expectedDigest, int(model.StatusRegistered), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return uploaderr.New(uploaderr.AlreadyExists, "FILE_ID_EXISTS", "file_id already registered")
		}
		return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "insert file meta", err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO upload_progress (file_id, start_offset, end_offset, chunk_size, uploaded_size, chunk_digest, last_updated)
			VALUES ($1, $2, $3, $4, 0, '', $5)
		`, fileID, c.StartOffset, c.EndOffset, c.ChunkSize, now)
	}
	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "insert chunk rows", err)
		}
	}
	if err := br.Close(); err != nil {
		return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "close chunk batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "commit register transaction", err)
	}
	return nil
}

// GetFile fails with NotFound if file_id is absent.
func (s *Store) GetFile(ctx context.Context, fileID string) (model.FileMeta, error) {
	var fm model.FileMeta
	err := s.pool.QueryRow(ctx, `
		SELECT file_id, filename, total_size, expected_digest, status, file_path, last_updated
		FROM upload_file_meta WHERE file_id = $1
	`, fileID).Scan(&fm.FileID, &fm.Filename, &fm.TotalSize, &fm.ExpectedDigest, &fm.Status, &fm.FilePath, &fm.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.FileMeta{}, uploaderr.New(uploaderr.NotFound, "FILE_NOT_FOUND", "unknown file_id")
	}
	if err != nil {
		return model.FileMeta{}, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "get file", err)
	}
	return fm, nil
}

// GetChunks returns a file's chunks ordered by start_offset ascending.
func (s *Store) GetChunks(ctx context.Context, fileID string) ([]model.ChunkProgress, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT file_id, start_offset, end_offset, chunk_size, uploaded_size, chunk_digest, last_updated
		FROM upload_progress WHERE file_id = $1 ORDER BY start_offset ASC
	`, fileID)
	if err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "get chunks", err)
	}
	defer rows.Close()

	var out []model.ChunkProgress
	for rows.Next() {
		var c model.ChunkProgress
		if err := rows.Scan(&c.FileID, &c.StartOffset, &c.EndOffset, &c.ChunkSize, &c.UploadedSize, &c.ChunkDigest, &c.LastUpdated); err != nil {
			return nil, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "scan chunk row", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "iterate chunk rows", err)
	}
	return out, nil
}

// UpdateChunk overwrites uploaded_size, chunk_digest, and last_updated for
// one (file_id, start_offset) row. This is the resume anchor the chunk writer
// step 4d: it must commit before the writer reads the next buffer.
func (s *Store) UpdateChunk(ctx context.Context, fileID string, startOffset, uploadedSize int64, chunkDigest string, now int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE upload_progress
		SET uploaded_size = $1, chunk_digest = $2, last_updated = $3
		WHERE file_id = $4 AND start_offset = $5
	`, uploadedSize, chunkDigest, now, fileID, startOffset)
	if err != nil {
		return uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "update chunk", err)
	}
	if tag.RowsAffected() == 0 {
		return uploaderr.New(uploaderr.NotFound, "CHUNK_NOT_FOUND", "no chunk at that start_offset")
	}
	return nil
}

// SumUploaded returns Σ uploaded_size across a file's chunks.
func (s *Store) SumUploaded(ctx context.Context, fileID string) (int64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(uploaded_size), 0) FROM upload_progress WHERE file_id = $1
	`, fileID).Scan(&total)
	if err != nil {
		return 0, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "sum uploaded", err)
	}
	return total, nil
}

// TransitionStatus is a compare-and-swap: it only updates the row when
// the current status equals from, returning whether it did. filePath, when
// non-nil, is written at the same time (the COMPLETED transition).
func (s *Store) TransitionStatus(ctx context.Context, fileID string, from, to model.Status, filePath *string, now int64) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if filePath != nil {
		tag, err = s.pool.Exec(ctx, `
			UPDATE upload_file_meta
			SET status = $1, file_path = $2, last_updated = $3
			WHERE file_id = $4 AND status = $5
		`, int(to), *filePath, now, fileID, int(from))
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE upload_file_meta
			SET status = $1, last_updated = $2
			WHERE file_id = $3 AND status = $4
		`, int(to), now, fileID, int(from))
	}
	if err != nil {
		return false, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "transition status", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetConfig returns the string value for key, falling back to def when the
// key is absent.
func (s *Store) GetConfig(ctx context.Context, key, def string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, `
		SELECT config_value FROM system_config WHERE config_key = $1
	`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, uploaderr.Wrap(uploaderr.Unavailable, "STORE_UNAVAILABLE", "get config", err)
	}
	return v, nil
}

// ChunkSizeConfig reads chunk_size, parsing it as a positive integer and
// falling back to model.DefaultChunkSize on absence or a parse failure.
func (s *Store) ChunkSizeConfig(ctx context.Context) (int64, error) {
	raw, err := s.GetConfig(ctx, model.ConfigKeyChunkSize, strconv.Itoa(model.DefaultChunkSize))
	if err != nil {
		return 0, err
	}
	n, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil || n <= 0 {
		return model.DefaultChunkSize, nil
	}
	return n, nil
}

// CheckInitialized gates every mutating operation.
func (s *Store) CheckInitialized(ctx context.Context) error {
	v, err := s.GetConfig(ctx, model.ConfigKeySystemInitialized, "")
	if err != nil {
		return err
	}
	if v != model.SystemInitializedValue {
		return uploaderr.New(uploaderr.FailedPrecondition, "SYSTEM_NOT_INITIALIZED", "store schema is not ready")
	}
	return nil
}

// ListFiles backs the status reporter's paginated, sortable listing. It is
// the one read path built on gorm's query builder rather than raw pgx:
// pagination/sorting/filtering compose naturally there.
var sortColumns = map[string]string{
	"id":   "file_id",
	"size": "total_size",
	"date": "last_updated",
}

func (s *Store) ListFiles(ctx context.Context, page, pageSize int, statusFilter *model.Status, sortBy, order string) (int64, []model.FileMeta, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	col, ok := sortColumns[sortBy]
	if !ok {
		col = "file_id"
	}
	if order != "asc" && order != "desc" {
		order = "asc"
	}

	q := s.gdb.WithContext(ctx).Model(&model.FileMeta{})
	if statusFilter != nil {
		q = q.Where("status = ?", int(*statusFilter))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, uploaderr.Wrap(uploaderr.Unavailable, "FETCH_FILES_ERROR", "count files", err)
	}

	var rows []model.FileMeta
	err := q.Order(fmt.Sprintf("%s %s", col, order)).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return 0, nil, uploaderr.Wrap(uploaderr.Unavailable, "FETCH_FILES_ERROR", "list files", err)
	}
	return total, rows, nil
}
