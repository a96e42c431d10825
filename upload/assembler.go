package upload

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/rorocorp/uploadcore/logger"
	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/uploaderr"
)

// Assembler assembles and verifies a completed upload. It runs exactly once
// per file_id, synchronously, from the writer call that crosses the
// REGISTERED→PROCESSING CAS (this may be moved to a background task keyed
// by file_id provided the CAS invariant holds).
type Assembler struct {
	Store      Store
	UploadsDir string
	Now        func() int64

	// ReadBufSize bounds the read buffer used while streaming the final
	// file through MD5. Defaults to 64KiB.
	ReadBufSize int
}

// Assemble concatenates a file's staging chunks in order, computes the
// whole-file MD5, and either publishes the result (status→COMPLETED,
// file_path set) or fails with DataLoss, leaving the file in PROCESSING
// and the final file on disk for forensics.
func (a *Assembler) Assemble(ctx context.Context, fileID string) (string, error) {
	fm, err := a.Store.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	chunks, err := a.Store.GetChunks(ctx, fileID)
	if err != nil {
		return "", err
	}

	dstPath := finalPath(a.UploadsDir, fm.Filename)
	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", uploaderr.Wrap(uploaderr.Unavailable, "ASSEMBLE_IO_ERROR", "create final file", err)
	}

	for _, c := range chunks {
		stagePath := stagingPath(a.UploadsDir, fm.Filename, c.StartOffset)
		if err := copyStagingFile(out, stagePath); err != nil {
			out.Close()
			return "", uploaderr.Wrap(uploaderr.Unavailable, "ASSEMBLE_IO_ERROR", "copy staging chunk", err)
		}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return "", uploaderr.Wrap(uploaderr.Unavailable, "ASSEMBLE_IO_ERROR", "sync final file", err)
	}
	if err := out.Close(); err != nil {
		return "", uploaderr.Wrap(uploaderr.Unavailable, "ASSEMBLE_IO_ERROR", "close final file", err)
	}

	digest, err := a.hashFile(dstPath)
	if err != nil {
		return "", uploaderr.Wrap(uploaderr.Unavailable, "ASSEMBLE_IO_ERROR", "hash final file", err)
	}

	if !strings.EqualFold(digest, fm.ExpectedDigest) {
		logger.L.Error().Str("file_id", fileID).Str("computed", digest).Str("expected", fm.ExpectedDigest).
			Msg("assembled file digest mismatch")
		return "", uploaderr.New(uploaderr.DataLoss, "DIGEST_MISMATCH", "whole-file MD5 does not match expected_digest")
	}

	ok, err := a.Store.TransitionStatus(ctx, fileID, model.StatusProcessing, model.StatusCompleted, &dstPath, a.now())
	if err != nil {
		return "", err
	}
	if !ok {
		// Another call already published file_path (idempotent CAS under
		// retry).
		return digest, nil
	}

	for _, c := range chunks {
		_ = os.Remove(stagingPath(a.UploadsDir, fm.Filename, c.StartOffset))
	}

	logger.L.Info().Str("file_id", fileID).Str("checksum", digest).Msg("file assembled and published")
	return digest, nil
}

func (a *Assembler) now() int64 {
	if a.Now != nil {
		return a.Now()
	}
	return defaultNow()
}

func copyStagingFile(dst io.Writer, stagePath string) error {
	src, err := os.Open(stagePath)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

func (a *Assembler) hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	bufSize := a.ReadBufSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, bufSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
