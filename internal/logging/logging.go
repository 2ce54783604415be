// Package logging builds the logrus logger shared by the CLI and pipeline.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to w at the given level. format is "text"
// (the default) or "json".
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lg := logrus.New()
	lg.SetOutput(w)

	lvl := logrus.InfoLevel
	if strings.TrimSpace(level) != "" {
		var err error
		lvl, err = logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}
	lg.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		lg.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	return lg, nil
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	return lg
}
