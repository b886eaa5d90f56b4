package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/session"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for testing and for running without a database.
type MemStore struct {
	mu         sync.RWMutex
	meetings   map[uuid.UUID]Meeting
	recordings map[uuid.UUID]Recording
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		meetings:   make(map[uuid.UUID]Meeting),
		recordings: make(map[uuid.UUID]Recording),
	}
}

// cloneRecording detaches the slice fields of r. Recordings are copied on
// every write into and read out of the map so a caller mutating its copy
// (retranslation does) never races a concurrent reader over the stored
// backing arrays.
func cloneRecording(r Recording) Recording {
	if r.Transcripts != nil {
		r.Transcripts = append([]session.Fragment(nil), r.Transcripts...)
	}
	if r.Insights != nil {
		r.Insights = append([]insight.Insight(nil), r.Insights...)
	}
	return r
}

// CreateMeeting implements [Store.CreateMeeting].
func (s *MemStore) CreateMeeting(_ context.Context, m Meeting) (Meeting, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Status == "" {
		m.Status = MeetingActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
	return m, nil
}

// GetMeeting implements [Store.GetMeeting].
func (s *MemStore) GetMeeting(_ context.Context, id uuid.UUID) (Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return m, nil
}

// ListMeetings implements [Store.ListMeetings].
func (s *MemStore) ListMeetings(_ context.Context) ([]Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Meeting, 0, len(s.meetings))
	for _, m := range s.meetings {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateMeetingTitle implements [Store.UpdateMeetingTitle].
func (s *MemStore) UpdateMeetingTitle(_ context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	m.Title = title
	s.meetings[id] = m
	return nil
}

// EndMeeting implements [Store.EndMeeting].
func (s *MemStore) EndMeeting(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.meetings[id]
	if !ok {
		return ErrNotFound
	}
	if m.Status == MeetingEnded {
		return nil
	}
	now := time.Now().UTC()
	m.Status = MeetingEnded
	m.EndedAt = &now
	s.meetings[id] = m
	return nil
}

// DeleteMeeting implements [Store.DeleteMeeting].
func (s *MemStore) DeleteMeeting(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[id]; !ok {
		return ErrNotFound
	}
	delete(s.meetings, id)
	for rid, r := range s.recordings {
		if r.MeetingID == id {
			delete(s.recordings, rid)
		}
	}
	return nil
}

// AddRecording implements [Store.AddRecording].
func (s *MemStore) AddRecording(_ context.Context, r Recording) (Recording, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meetings[r.MeetingID]; !ok {
		return Recording{}, ErrNotFound
	}
	s.recordings[r.ID] = cloneRecording(r)
	return r, nil
}

// GetRecording implements [Store.GetRecording].
func (s *MemStore) GetRecording(_ context.Context, id uuid.UUID) (Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recordings[id]
	if !ok {
		return Recording{}, ErrNotFound
	}
	return cloneRecording(r), nil
}

// ListRecordings implements [Store.ListRecordings].
func (s *MemStore) ListRecordings(_ context.Context, meetingID uuid.UUID) ([]Recording, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Recording, 0)
	for _, r := range s.recordings {
		if r.MeetingID == meetingID {
			out = append(out, cloneRecording(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateRecording implements [Store.UpdateRecording].
func (s *MemStore) UpdateRecording(_ context.Context, r Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.recordings[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.MeetingID = old.MeetingID
	r.CreatedAt = old.CreatedAt
	s.recordings[r.ID] = cloneRecording(r)
	return nil
}
