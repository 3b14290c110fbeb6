package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// teeWriter collects log output in memory until a live target is
// attached (the TUI log pane only exists after the first draw) and
// optionally copies every record to a log file.
type teeWriter struct {
	mu        sync.Mutex
	pending   *bytes.Buffer
	target    io.Writer
	file      *os.File
	buffering bool
}

func (w *teeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.buffering {
		w.pending.Write(p)
	} else if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}

	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var writer *teeWriter

// ParseLevel maps the level names used in the config file to slog
// levels. Unknown names fall back to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the default slog logger. With bufferOutput set, output
// is held back until SetOutput is called; otherwise it goes to stderr.
// A non-empty logFile is opened for appending and receives every record.
func Init(bufferOutput bool, levelStr, formatStr, logFile string) error {
	w := &teeWriter{
		pending:   &bytes.Buffer{},
		buffering: bufferOutput,
	}
	if !bufferOutput {
		w.target = os.Stderr
	}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return err
		}
		w.file = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if strings.ToLower(formatStr) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	writer = w
	slog.SetDefault(slog.New(handler))
	return nil
}

// SetOutput flushes everything buffered so far to newTarget and
// switches to live logging.
func SetOutput(newTarget io.Writer) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.pending.Len() > 0 {
		if _, err := newTarget.Write(writer.pending.Bytes()); err != nil {
			return err
		}
		writer.pending.Reset()
	}

	writer.target = newTarget
	writer.buffering = false
	return nil
}

// BufferOutput detaches the live target and starts buffering again.
func BufferOutput() {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	writer.target = nil
	writer.buffering = true
}

// Close flushes pending output and closes the log file. Pending output
// without a live target goes to stderr so that nothing logged while the
// TUI was starting up or shutting down gets lost.
func Close() error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	var firstErr error
	if writer.target == nil && writer.pending.Len() > 0 {
		if _, err := os.Stderr.Write(writer.pending.Bytes()); err != nil {
			firstErr = err
		}
	}
	writer.pending.Reset()

	if writer.file != nil {
		if err := writer.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		writer.file = nil
	}
	return firstErr
}
