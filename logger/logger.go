// Package logger wires the process-wide zerolog logger.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// L is the process-wide logger. Set up once by Init, read everywhere else.
var L = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the global logger to write to stderr and, when logFilePath
// is non-empty, to that file as well.
func Init(logFilePath string) error {
	var w io.Writer = os.Stderr

	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = zerolog.MultiLevelWriter(os.Stderr, f)
	}

	L = zerolog.New(w).With().Timestamp().Logger()
	return nil
}
