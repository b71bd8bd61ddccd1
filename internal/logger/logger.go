// Package logger provides a thread-safe in-memory log of status messages,
// surfaced to operators through the API's /api/logs endpoint.
package logger

import (
	"fmt"
	"sync"
	"time"
)

// Level classifies a log message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message represents a single log message.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     Level     `json:"level"`
}

// Logger manages a bounded ring of in-memory log messages.
type Logger struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
}

// New creates a new logger keeping at most maxSize messages.
func New(maxSize int) *Logger {
	return &Logger{
		messages: make([]Message, 0, maxSize),
		maxSize:  maxSize,
	}
}

// Log adds a new message to the logger.
func (l *Logger) Log(level Level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, Message{
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	})

	if len(l.messages) > l.maxSize {
		l.messages = l.messages[len(l.messages)-l.maxSize:]
	}
}

// Info logs an info-level message.
func (l *Logger) Info(text string) {
	l.Log(LevelInfo, text)
}

// Infof logs a formatted info-level message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Log(LevelInfo, fmt.Sprintf(format, args...))
}

// Warning logs a warning-level message.
func (l *Logger) Warning(text string) {
	l.Log(LevelWarning, text)
}

// Error logs an error-level message.
func (l *Logger) Error(text string) {
	l.Log(LevelError, text)
}

// Errorf logs a formatted error-level message.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Log(LevelError, fmt.Sprintf(format, args...))
}

// GetRecent returns the most recent n messages, newest first.
func (l *Logger) GetRecent(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.messages) {
		n = len(l.messages)
	}
	result := make([]Message, n)
	for i := 0; i < n; i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}
	return result
}

// GetAll returns all messages, newest first.
func (l *Logger) GetAll() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Message, len(l.messages))
	for i := 0; i < len(l.messages); i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}
	return result
}
