package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// Options configures the package logger. An empty Filename logs to stdout.
type Options struct {
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
	Level      string
}

var (
	mu      sync.RWMutex
	logger  = log.New(os.Stdout, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugOn bool
	closer  io.Closer
)

// Init replaces the package logger. Safe to call more than once.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		_ = closer.Close()
		closer = nil
	}

	var out io.Writer = os.Stdout
	if opts.Filename != "" {
		lj := &lumberjack.Logger{
			Filename: opts.Filename,
			MaxSize:  opts.MaxSizeMB,  // megabytes
			MaxAge:   opts.MaxAgeDays, // days
		}
		out = lj
		closer = lj
	}

	logger = log.New(out, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	debugOn = strings.EqualFold(opts.Level, "debug")
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func write(color, level, category string, content []interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[%s][%s]%s", color, level, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Info(category string, content ...interface{}) {
	write(ColorGreen, "INFO", category, content)
}

func Error(category string, content ...interface{}) {
	write(ColorRed, "ERROR", category, content)
}

func Warn(category string, content ...interface{}) {
	write(ColorYellow, "WARN", category, content)
}

func Debug(category string, content ...interface{}) {
	mu.RLock()
	on := debugOn
	mu.RUnlock()
	if !on {
		return
	}
	write(ColorBlue, "DEBUG", category, content)
}
