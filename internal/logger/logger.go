package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Options controls where and how much is logged.
type Options struct {
	File   string
	Level  string
	Stdout bool
}

// Setup points Logrus at a rotating file (mirrored to stdout when asked) and
// returns the writer so other loggers can share it.
func Setup(opts Options) io.Writer {
	// 1) Lumberjack for file rotation
	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     7, // days
		Compress:   true,
	}

	var out io.Writer = rotator
	if opts.Stdout {
		out = io.MultiWriter(os.Stdout, rotator)
	}

	// 2) Configure Logrus to write there
	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
		logrus.WithField("level", opts.Level).Warn("Unknown log level; defaulting to info.")
	}
	logrus.SetLevel(level)

	return out
}

// GormLogger returns the standard Logrus logger for GORM.
func GormLogger() *logrus.Logger {
	return logrus.StandardLogger()
}
