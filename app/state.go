// Package app holds the state shared between the simulator, which produces
// a key, and its readers: the encryption demo and the analysis views.
package app

import (
	"sync"
	"time"

	"github.com/alan-christopher/bb84sim/bb84"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// A Snapshot is the published outcome of one simulator run.
type Snapshot struct {
	RunID       uuid.UUID
	Events      []bb84.Event
	Stats       bb84.Stats
	Key         bb84.Key
	PublishedAt time.Time
}

// State is written by a single simulator and read by any number of views.
// It is safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	snap     *Snapshot
	analysis *bb84.Analysis
	subs     []chan struct{}
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// PublishRun records the outcome of r, replacing any earlier run, and wakes
// every subscriber.
func (s *State) PublishRun(r *bb84.Run) Snapshot {
	snap := Snapshot{
		RunID:       r.ID(),
		Events:      r.Events(),
		Stats:       r.Stats(),
		Key:         r.Key(),
		PublishedAt: time.Now(),
	}
	s.mu.Lock()
	s.snap = &snap
	subs := s.subs
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"run":      snap.RunID.String(),
		"key_bits": snap.Key.Size(),
		"complete": snap.Key.Complete(),
	}).Info("Published shared key")
	notify(subs)
	return snap
}

// PublishAnalysis records the most recent eavesdropping analysis.
func (s *State) PublishAnalysis(a bb84.Analysis) {
	s.mu.Lock()
	s.analysis = &a
	subs := s.subs
	s.mu.Unlock()
	notify(subs)
}

// Snapshot returns the last published run, if any.
func (s *State) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// SharedKey returns the key of the last published run as a bit string, or ""
// if nothing has been published.
func (s *State) SharedKey() string {
	snap, ok := s.Snapshot()
	if !ok {
		return ""
	}
	return snap.Key.String()
}

// Analysis returns the last published analysis, if any.
func (s *State) Analysis() (bb84.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.analysis == nil {
		return bb84.Analysis{}, false
	}
	return *s.analysis, true
}

// Subscribe returns a channel that receives a value after every publish.
// Notifications are coalesced: a slow reader sees at most one pending.
func (s *State) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Clear forgets the published run and analysis.
func (s *State) Clear() {
	s.mu.Lock()
	s.snap = nil
	s.analysis = nil
	subs := s.subs
	s.mu.Unlock()
	notify(subs)
}

func notify(subs []chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
