package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/rorocorp/uploadcore/logger"
	"github.com/rorocorp/uploadcore/model"
	"github.com/rorocorp/uploadcore/uploaderr"
)

// Writer is the chunk writer, the hot path: one call streams one range
// from the network into a per-chunk staging file, committing
// uploaded_size/chunk_digest after every buffer so a crash loses at most
// one batch of writes.
type Writer struct {
	Store      Store
	Assembler  *Assembler
	UploadsDir string
	Now        func() int64

	// BufSize bounds how much of the body is read per Store.UpdateChunk
	// round trip. Defaults to 32KiB.
	BufSize int
}

// Result is what a successful UploadChunk call returns.
type Result struct {
	Status   string `json:"status"` // "success" | "range_success"
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

var contentRangeRE = regexp.MustCompile(`^bytes\s+(\d+)-(\d+)(?:/.*)?$`)

// parseContentRange parses "bytes A-B/*" (the trailing slash-suffix is
// ignored).
func parseContentRange(headerValue string) (start, end int64, ok bool) {
	m := contentRangeRE.FindStringSubmatch(headerValue)
	if m == nil {
		return 0, 0, false
	}
	a, err1 := strconv.ParseInt(m[1], 10, 64)
	b, err2 := strconv.ParseInt(m[2], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// UploadChunk runs the full chunk write end to end: precondition checks, range
// parsing, the streaming write loop with its per-buffer durability commit,
// and the post-write completion check that may trigger the Assembler.
func (w *Writer) UploadChunk(ctx context.Context, fileID string, startOffset, contentLength int64, contentRangeHeader string, body io.Reader) (*Result, error) {
	if err := w.Store.CheckInitialized(ctx); err != nil {
		return nil, err
	}

	fm, err := w.Store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if model.Status(fm.Status) != model.StatusRegistered {
		return nil, uploaderr.New(uploaderr.FailedPrecondition, "ALREADY_ASSEMBLING_OR_COMPLETE", "file is not accepting chunk writes")
	}

	chunks, err := w.Store.GetChunks(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var target *model.ChunkProgress
	for i := range chunks {
		if chunks[i].StartOffset == startOffset {
			target = &chunks[i]
			break
		}
	}
	if target == nil {
		return nil, uploaderr.New(uploaderr.NotFound, "CHUNK_NOT_FOUND", "no chunk at that start_offset")
	}
	if contentLength > target.ChunkSize {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "CONTENT_LENGTH_TOO_LARGE", "content_length exceeds chunk_size")
	}

	startPos, endPos := startOffset, startOffset+contentLength-1
	if contentRangeHeader != "" {
		a, b, ok := parseContentRange(contentRangeHeader)
		if !ok {
			return nil, uploaderr.New(uploaderr.InvalidArgument, "BAD_CONTENT_RANGE", "malformed Content-Range header")
		}
		startPos, endPos = a, b
		if endPos-startPos+1 != contentLength {
			return nil, uploaderr.New(uploaderr.InvalidArgument, "BAD_CONTENT_RANGE", "Content-Range span does not match content_length")
		}
	}
	if startOffset > startPos || startPos+contentLength > startOffset+target.ChunkSize {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "RANGE_OUT_OF_BOUNDS", "start_pos/content_length fall outside the chunk")
	}

	stagePath := stagingPath(w.UploadsDir, fm.Filename, startOffset)
	f, err := os.OpenFile(stagePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STAGING_IO_ERROR", "open staging file", err)
	}
	defer f.Close()

	inChunkOffset := startPos - startOffset
	if _, err := f.Seek(inChunkOffset, io.SeekStart); err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STAGING_IO_ERROR", "seek staging file", err)
	}

	bufSize := w.BufSize
	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	buf := make([]byte, bufSize)
	hasher := sha256.New()
	var written int64

	for written < contentLength {
		take := int64(len(buf))
		if remaining := contentLength - written; remaining < take {
			take = remaining
		}
		n, readErr := body.Read(buf[:take])
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return nil, uploaderr.Wrap(uploaderr.Unavailable, "STAGING_IO_ERROR", "write staging file", werr)
			}
			hasher.Write(buf[:n])
			written += int64(n)

			digest := hex.EncodeToString(hasher.Sum(nil))
			uploaded := inChunkOffset + written
			if err := w.Store.UpdateChunk(ctx, fileID, startOffset, uploaded, digest, w.now()); err != nil {
				return nil, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, uploaderr.Wrap(uploaderr.Unavailable, "BODY_READ_ERROR", "read request body", readErr)
		}
	}
	if written != contentLength {
		return nil, uploaderr.New(uploaderr.InvalidArgument, "SHORT_BODY", "body shorter than content_length")
	}
	if err := f.Sync(); err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STAGING_IO_ERROR", "flush staging file", err)
	}
	if err := f.Close(); err != nil {
		return nil, uploaderr.Wrap(uploaderr.Unavailable, "STAGING_IO_ERROR", "close staging file", err)
	}

	thisCallDigest := hex.EncodeToString(hasher.Sum(nil))

	total, err := w.Store.SumUploaded(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if total >= fm.TotalSize {
		ok, err := w.Store.TransitionStatus(ctx, fileID, model.StatusRegistered, model.StatusProcessing, nil, w.now())
		if err != nil {
			return nil, err
		}
		if ok {
			checksum, err := w.Assembler.Assemble(ctx, fileID)
			if err != nil {
				return nil, err
			}
			return &Result{Status: "success", Filename: fm.Filename, Size: fm.TotalSize, Checksum: checksum}, nil
		}
		// Another concurrent writer already advanced the CAS; fall through
		// and report this call's own range success.
	}

	logger.L.Debug().Str("file_id", fileID).Int64("start_offset", startOffset).Int64("written", written).Msg("chunk range written")
	return &Result{Status: "range_success", Filename: fm.Filename, Size: written, Checksum: thisCallDigest}, nil
}

func (w *Writer) now() int64 {
	if w.Now != nil {
		return w.Now()
	}
	return defaultNow()
}
