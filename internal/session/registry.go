package session

import (
	"fmt"
	"sync"
)

// SpeakerRegistry maps ephemeral diarizer labels onto persistent
// session-scoped labels. The diarizer's own labels are only stable within
// one call; the registry is what keeps "SPEAKER_2" meaning the same person
// across every window of a meeting.
//
// The mapping grows monotonically for the life of the session: labels are
// never removed or renumbered. Safe for concurrent use.
type SpeakerRegistry struct {
	mu      sync.Mutex
	mapping map[string]string
	nextID  int
}

// NewSpeakerRegistry creates an empty registry. The first resolved label
// is SPEAKER_1.
func NewSpeakerRegistry() *SpeakerRegistry {
	return &SpeakerRegistry{
		mapping: make(map[string]string),
		nextID:  1,
	}
}

// Resolve returns the persistent label for an ephemeral one, allocating
// the next label on first sight. Resolving the same ephemeral label twice
// always yields the same result; two distinct ephemeral labels never share
// a persistent label.
func (r *SpeakerRegistry) Resolve(ephemeral string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if label, ok := r.mapping[ephemeral]; ok {
		return label
	}
	label := fmt.Sprintf("SPEAKER_%d", r.nextID)
	r.nextID++
	r.mapping[ephemeral] = label
	return label
}

// Len reports how many distinct speakers have been seen.
func (r *SpeakerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mapping)
}
