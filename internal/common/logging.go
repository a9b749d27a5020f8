package common

import (
	"io"
	"log"
	"os"
)

var (
	logger = log.New(os.Stderr, "[edmdat] ", log.LstdFlags|log.Lmicroseconds)
)

// SetOutput redirects the package logger.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Printf("WARNING: "+format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}
