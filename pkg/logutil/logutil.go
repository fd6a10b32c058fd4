// Package logutil provides logging utilities.
package logutil

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     = io.Discard
	file    *os.File
	loggers []*log.Logger
)

// GetLogger gets a logger with the given prefix. All loggers write to the
// same output, which discards everything until changed by SetOutput or
// SetOutputFile.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags|log.Lmicroseconds)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers obtained with GetLogger to
// the new io.Writer. If the old output was a file opened by SetOutputFile,
// it is closed.
func SetOutput(newOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	setOutput(newOut, nil)
}

func setOutput(newOut io.Writer, newFile *os.File) {
	out = newOut
	for _, logger := range loggers {
		logger.SetOutput(out)
	}
	if file != nil {
		file.Close()
	}
	file = newFile
}

// SetOutputFile redirects the output of all loggers obtained with GetLogger
// to the named file, which is appended to. If the name is empty, output is
// discarded.
func SetOutputFile(name string) error {
	if name == "" {
		SetOutput(io.Discard)
		return nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	setOutput(f, f)
	return nil
}
