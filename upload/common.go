package upload

import (
	"path/filepath"
	"time"

	"github.com/rorocorp/uploadcore/sanitize"
)

func defaultNow() int64 { return time.Now().Unix() }

// stagingPath returns <uploadsDir>/<sanitized_filename>_chunk_<start_offset>.
func stagingPath(uploadsDir, filename string, startOffset int64) string {
	return filepath.Join(uploadsDir, sanitize.StagingName(filename, startOffset))
}

// finalPath returns <uploadsDir>/<sanitized_filename>.
func finalPath(uploadsDir, filename string) string {
	return filepath.Join(uploadsDir, filename)
}
