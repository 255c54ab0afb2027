package sl

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// SetupLogger builds the process logger. Output always goes to stdout;
// when filePath is non-empty the same records are appended to that file.
// If the file cannot be opened, a file of the same name in the home
// directory is tried before falling back to stdout alone.
func SetupLogger(level, format, filePath string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	out := io.Writer(os.Stdout)
	if filePath != "" {
		if f := openLogFile(filePath); f != nil {
			out = io.MultiWriter(os.Stdout, f)
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}

func openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		return f
	}

	home, herr := os.UserHomeDir()
	if herr != nil {
		return nil
	}

	f, err = os.OpenFile(filepath.Join(home, filepath.Base(path)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	return f
}
