package session

import (
	"context"
	"sync"

	"github.com/soundwalk/service-tour/internal/domain/tour"
)

type fakeNarrator struct {
	mu           sync.Mutex
	autoComplete bool
	spoken       []string
	pending      []chan error
}

func (n *fakeNarrator) Available() bool { return true }

func (n *fakeNarrator) Speak(_ context.Context, text, _ string) <-chan error {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan error, 1)
	n.spoken = append(n.spoken, text)
	if n.autoComplete {
		ch <- nil
		close(ch)
		return ch
	}
	n.pending = append(n.pending, ch)
	return ch
}

func (n *fakeNarrator) StopSpeaking() { n.finish(nil) }

func (n *fakeNarrator) finish(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.pending) == 0 {
		return
	}
	ch := n.pending[0]
	n.pending = n.pending[1:]
	ch <- err
	close(ch)
}

func (n *fakeNarrator) spokenTexts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.spoken...)
}

type fakeLifecycle struct {
	mu     sync.Mutex
	begins []string
	ends   int
}

func (l *fakeLifecycle) Begin(routeName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.begins = append(l.begins, routeName)
}

func (l *fakeLifecycle) End() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ends++
}

func (l *fakeLifecycle) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.begins), l.ends
}

type fakeNotifier struct {
	mu      sync.Mutex
	arrived []string
}

func (n *fakeNotifier) NotifyStopArrived(stop tour.Stop) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.arrived = append(n.arrived, stop.ID)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.arrived)
}
