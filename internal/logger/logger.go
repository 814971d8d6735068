package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	once   sync.Once
	mu     sync.RWMutex
	logger *log.Logger
)

func Init() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if logger == nil {
			logger = log.New(os.Stdout, "WEATHERCHAT: ", log.LstdFlags|log.Lshortfile)
		}
	})
}

// SetOutput redirects all log output, mostly useful in tests.
func SetOutput(w io.Writer) {
	Init()
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

// logf keeps call depth at 3 so Lshortfile points at the caller of Info/Error.
func logf(level, message string, v ...interface{}) {
	Init()
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Output(3, level+fmt.Sprintf(message, v...))
}

func Info(message string, v ...interface{}) {
	logf("INFO: ", message, v...)
}

func Warn(message string, v ...interface{}) {
	logf("WARN: ", message, v...)
}

func Error(message string, v ...interface{}) {
	logf("ERROR: ", message, v...)
}

func Debug(message string, v ...interface{}) {
	logf("DEBUG: ", message, v...)
}
