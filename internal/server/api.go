package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/weihan0529/global-meeting-scribe/internal/store"
)

// meetingDetail is the GET /api/meetings/{id} response body.
type meetingDetail struct {
	Success    bool              `json:"success"`
	Meeting    store.Meeting     `json:"meeting"`
	Recordings []store.Recording `json:"recordings"`
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := s.store.ListMeetings(r.Context())
	if err != nil {
		s.log.Error("list meetings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list meetings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "meetings": meetings})
}

func (s *Server) handleGetMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	meeting, err := s.store.GetMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		s.log.Error("get meeting failed", "meeting_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load meeting")
		return
	}

	recordings, err := s.store.ListRecordings(r.Context(), id)
	if err != nil {
		s.log.Error("list recordings failed", "meeting_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load recordings")
		return
	}

	writeJSON(w, http.StatusOK, meetingDetail{Success: true, Meeting: meeting, Recordings: recordings})
}

func (s *Server) handleDeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := s.store.DeleteMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		s.log.Error("delete meeting failed", "meeting_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not delete meeting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "deleted"})
}

func (s *Server) handleEndMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := s.store.EndMeeting(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "meeting not found")
		return
	}
	if err != nil {
		s.log.Error("end meeting failed", "meeting_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not end meeting")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ended"})
}

// pathID parses the {id} path segment as a UUID, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meeting id")
		return uuid.Nil, false
	}
	return id, true
}
