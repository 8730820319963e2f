package ports

import "context"

// NarrationEngine is an opaque "speak text, notify on completion" service.
type NarrationEngine interface {
	// Available reports whether the engine initialized successfully.
	Available() bool
	// Speak starts narrating text. The returned channel delivers exactly one
	// value (nil on success) and is then closed.
	Speak(ctx context.Context, text, localeHint string) <-chan error
	// StopSpeaking interrupts the current utterance. Its completion is still delivered.
	StopSpeaking()
}
