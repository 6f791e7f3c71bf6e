// Package log configures the zerolog loggers shared by the client, the
// coordinator and the nodes.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type LoggerType uint8

const (
	ConsoleLogger LoggerType = iota
	JSONLogger
)

// Component loggers. They are disabled until Init is called so that library
// users who never configure logging get no output.
var (
	Root        = zerolog.Nop()
	Client      = zerolog.Nop()
	Exec        = zerolog.Nop()
	Coordinator = zerolog.Nop()
	Node        = zerolog.Nop()
)

// Options for Init.
type Options struct {
	// LogLevel is the minimum level emitted; use ParseLogLevel("") for info.
	LogLevel zerolog.Level
	Type     LoggerType
	// Out defaults to os.Stdout.
	Out io.Writer
}

func ParseLogLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(level)
}

func ParseLoggerType(s string) (LoggerType, error) {
	switch strings.ToLower(s) {
	case "", "console":
		return ConsoleLogger, nil
	case "json":
		return JSONLogger, nil
	}
	return ConsoleLogger, errors.Newf("unknown log format %q", s)
}

func Init(opts Options) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	switch opts.Type {
	case ConsoleLogger:
		Root = zerolog.New(newConsoleWriter(out)).Level(opts.LogLevel).
			With().Timestamp().Logger()
	default:
		Root = zerolog.New(out).Level(opts.LogLevel).
			With().Timestamp().Logger()
	}
	Client = Root.With().Str("component", "client").Logger()
	Exec = Root.With().Str("component", "exec").Logger()
	Coordinator = Root.With().Str("component", "coordinator").Logger()
	Node = Root.With().Str("component", "node").Logger()
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}

	cw.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}

	cw.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s=", i)
	}
	return cw
}
