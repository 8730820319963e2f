// Package narration provides NarrationEngine implementations for the server
// and CLI, where no audio device is attached.
package narration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrInterrupted completes an utterance cut short by StopSpeaking.
var ErrInterrupted = errors.New("narration interrupted")

// DefaultWordsPerMinute approximates a calm tour-guide voice.
const DefaultWordsPerMinute = 150

const minUtterance = 50 * time.Millisecond

// TimedNarrator simulates speech: each utterance lasts as long as the text
// would take to read aloud at the configured pace.
type TimedNarrator struct {
	mu        sync.Mutex
	wpm       int
	available bool
	interrupt chan struct{} // closed by StopSpeaking; nil when silent
	logger    *zap.Logger
}

// NewTimedNarrator creates a narrator speaking at wpm words per minute.
// A non-positive wpm disables narration entirely.
func NewTimedNarrator(wpm int, logger *zap.Logger) *TimedNarrator {
	return &TimedNarrator{
		wpm:       wpm,
		available: wpm > 0,
		logger:    logger.Named("narrator"),
	}
}

// Available reports whether the narrator can speak.
func (n *TimedNarrator) Available() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.available
}

// SetAvailable toggles availability, e.g. when a voice pack is removed.
func (n *TimedNarrator) SetAvailable(available bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.available = available && n.wpm > 0
}

// SpeechDuration returns how long text takes at the narrator's pace.
func (n *TimedNarrator) SpeechDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 || n.wpm <= 0 {
		return minUtterance
	}
	d := time.Duration(words) * time.Minute / time.Duration(n.wpm)
	if d < minUtterance {
		return minUtterance
	}
	return d
}

// Speak starts an utterance, interrupting any current one. The returned
// channel receives exactly one value when speech ends.
func (n *TimedNarrator) Speak(ctx context.Context, text, localeHint string) <-chan error {
	done := make(chan error, 1)

	n.mu.Lock()
	if !n.available {
		n.mu.Unlock()
		done <- errors.New("narrator unavailable")
		close(done)
		return done
	}
	if n.interrupt != nil {
		close(n.interrupt)
	}
	interrupt := make(chan struct{})
	n.interrupt = interrupt
	n.mu.Unlock()

	d := n.SpeechDuration(text)
	n.logger.Debug("speaking",
		zap.String("locale", localeHint),
		zap.Duration("duration", d),
		zap.Int("chars", len(text)),
	)

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		var err error
		select {
		case <-timer.C:
		case <-interrupt:
			err = ErrInterrupted
		case <-ctx.Done():
			err = ctx.Err()
		}

		n.mu.Lock()
		if n.interrupt == interrupt {
			n.interrupt = nil
		}
		n.mu.Unlock()

		done <- err
		close(done)
	}()
	return done
}

// StopSpeaking interrupts the current utterance, if any.
func (n *TimedNarrator) StopSpeaking() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.interrupt != nil {
		close(n.interrupt)
		n.interrupt = nil
	}
}
