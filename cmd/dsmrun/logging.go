package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// newLogger fans trace output out to stderr, when stderr is true, and to a
// file opened for this run, when tracePath is set. Closing the returned
// closer flushes and releases the file handler; it is a no-op when no file
// was opened.
func newLogger(stderr bool, tracePath string) (*slog.Logger, io.Closer, error) {
	var handlers []slog.Handler
	if stderr {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var closer io.Closer = nopCloser{}
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
