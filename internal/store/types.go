package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/weihan0529/global-meeting-scribe/internal/insight"
	"github.com/weihan0529/global-meeting-scribe/internal/session"
)

// MeetingStatus tracks a meeting's lifecycle.
type MeetingStatus string

const (
	// MeetingActive means the meeting is still accepting audio.
	MeetingActive MeetingStatus = "active"

	// MeetingEnded means the meeting has been closed by the client.
	MeetingEnded MeetingStatus = "ended"
)

// Meeting is the persisted lifecycle record of one transcription session.
type Meeting struct {
	ID             uuid.UUID     `json:"id"`
	Title          string        `json:"title"`
	SourceLanguage string        `json:"source_language,omitempty"`
	TargetLanguage string        `json:"target_language,omitempty"`
	Status         MeetingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	EndedAt        *time.Time    `json:"ended_at,omitempty"`
}

// Recording is one finished processing result attached to a meeting:
// the speaker-attributed transcript fragments and the insights extracted
// from them. Retranslation rewrites Transcripts and TargetLanguage in place.
type Recording struct {
	ID             uuid.UUID          `json:"id"`
	MeetingID      uuid.UUID          `json:"meeting_id"`
	Transcripts    []session.Fragment `json:"transcripts"`
	Insights       []insight.Insight  `json:"insights"`
	TargetLanguage string             `json:"target_language,omitempty"`

	// Duration is the covered audio length in seconds.
	Duration  float64   `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
}
