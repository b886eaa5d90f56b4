// Package store persists meetings and their processed recordings.
//
// A meeting is the outer lifecycle object a client starts and ends over the
// socket; a recording is one finished processing result (transcript
// fragments plus extracted insights) attached to a meeting. Recordings are
// updated in place when a client retranslates them to a new target language.
//
// All implementations must be safe for concurrent use.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested meeting or recording does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface for meetings and recordings.
type Store interface {
	// CreateMeeting persists a new meeting. A zero ID is replaced with a
	// generated one; a zero CreatedAt is replaced with the current time.
	// Returns the stored meeting.
	CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)

	// GetMeeting retrieves a meeting by ID.
	// Returns [ErrNotFound] when no meeting with that ID exists.
	GetMeeting(ctx context.Context, id uuid.UUID) (Meeting, error)

	// ListMeetings returns all meetings, newest first.
	ListMeetings(ctx context.Context) ([]Meeting, error)

	// UpdateMeetingTitle renames a meeting.
	// Returns [ErrNotFound] when no meeting with that ID exists.
	UpdateMeetingTitle(ctx context.Context, id uuid.UUID, title string) error

	// EndMeeting marks a meeting as ended and stamps its end time.
	// Ending an already-ended meeting is a no-op.
	// Returns [ErrNotFound] when no meeting with that ID exists.
	EndMeeting(ctx context.Context, id uuid.UUID) error

	// DeleteMeeting removes a meeting and all of its recordings.
	// Returns [ErrNotFound] when no meeting with that ID exists.
	DeleteMeeting(ctx context.Context, id uuid.UUID) error

	// AddRecording persists a processing result under its meeting. A zero ID
	// is replaced with a generated one; a zero CreatedAt with the current
	// time. Returns the stored recording.
	AddRecording(ctx context.Context, r Recording) (Recording, error)

	// GetRecording retrieves a recording by ID.
	// Returns [ErrNotFound] when no recording with that ID exists.
	GetRecording(ctx context.Context, id uuid.UUID) (Recording, error)

	// ListRecordings returns a meeting's recordings, oldest first.
	ListRecordings(ctx context.Context, meetingID uuid.UUID) ([]Recording, error)

	// UpdateRecording replaces a stored recording's content, keeping its ID
	// and meeting association. Used after retranslation.
	// Returns [ErrNotFound] when no recording with that ID exists.
	UpdateRecording(ctx context.Context, r Recording) error
}
