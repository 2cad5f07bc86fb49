// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// Init sets output, format ("text" or "json") and level. Unknown levels fall
// back to info.
func Init(level, format string) {
	InitTo(os.Stdout, level, format)
}

// InitTo is Init with an explicit output.
func InitTo(out io.Writer, level, format string) {
	log.SetOutput(out)
	if format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	l, err := log.ParseLevel(level)
	if err != nil {
		l = log.InfoLevel
	}
	log.SetLevel(l)
}

// L returns the standard logger.
func L() *log.Logger { return log.StandardLogger() }
