// Package notify delivers short user-facing messages (toasts).
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a function to a Notifier.
type Func func(level Level, message string)

// Notify calls f.
func (f Func) Notify(level Level, message string) { f(level, message) }

// Nop discards all notifications.
var Nop Notifier = Func(func(Level, string) {})

// Log writes notifications to a zerolog logger.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notify").Logger()}
}

// Notify logs the message at a level matching its severity.
func (l *Log) Notify(level Level, message string) {
	switch level {
	case LevelError:
		l.logger.Error().Msg(message)
	default:
		l.logger.Info().Str("level", string(level)).Msg(message)
	}
}

// Desktop shows notifications through the OS notification center.
type Desktop struct {
	title  string
	logger zerolog.Logger
}

// NewDesktop creates a desktop notifier with the given title.
func NewDesktop(title string, logger zerolog.Logger) *Desktop {
	return &Desktop{title: title, logger: logger}
}

// Notify shows a desktop notification. Errors use the alert variant.
func (d *Desktop) Notify(level Level, message string) {
	var err error
	if level == LevelError {
		err = beeep.Alert(d.title, message, "")
	} else {
		err = beeep.Notify(d.title, message, "")
	}
	if err != nil {
		d.logger.Debug().Err(err).Msg("desktop notification failed")
	}
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify forwards to every notifier.
func (m Multi) Notify(level Level, message string) {
	for _, n := range m {
		n.Notify(level, message)
	}
}

// Message is a recorded notification.
type Message struct {
	Level Level
	Text  string
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records the message.
func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: message})
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Count returns the number of notifications at the given level.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Level == level {
			n++
		}
	}
	return n
}
