// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Console selects stderr instead of a log file.
const Console = "console"

// DefaultPath returns the log file used when none is configured. The
// terminal belongs to the overlay while it runs, so logs go to a file.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return Console
	}
	return filepath.Join(dir, "bg-window", "bg-window.log")
}

// Init parses and sets the log level and routes output to logPath, rotating
// the file with lumberjack.
func Init(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", logLevel, err)
	}

	formatter := &log.TextFormatter{FullTimestamp: true}
	if logPath != "" && logPath != Console {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
		log.SetOutput(io.Writer(&lumberjack.Logger{
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}))
		formatter.DisableColors = true
	} else {
		log.SetOutput(os.Stderr)
	}

	log.SetFormatter(formatter)
	log.SetLevel(level)
	return nil
}
