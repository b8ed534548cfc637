package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
)

type captureRequest struct {
	Text      string `json:"text"`
	Mood      *int   `json:"mood,omitempty"`
	Style     string `json:"style,omitempty"`
	Image     []byte `json:"image,omitempty"`
	ImageMIME string `json:"imageMime,omitempty"`
}

type reportRequest struct {
	// Date is YYYY-MM-DD; empty means today
	Date string `json:"date"`
}

type goalRequest struct {
	Text     string `json:"text"`
	Deadline string `json:"deadline"`
}

type statusRequest struct {
	Status model.GoalStatus `json:"status"`
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.journal.Timeline(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}

func (s *Server) captureEntry(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.journal.Capture(r.Context(), journal.CaptureInput{
		Text:      req.Text,
		Mood:      req.Mood,
		Style:     req.Style,
		Image:     req.Image,
		ImageMIME: req.ImageMIME,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.journal.GetEntry(r.Context(), model.EntryID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.journal.DeleteEntry(r.Context(), model.EntryID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	day, err := s.journal.ParseDay(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.journal.DailyReport(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.journal.Profile(r.Context(), model.ProfileMode(r.URL.Query().Get("mode")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) coach(w http.ResponseWriter, r *http.Request) {
	feedback, err := s.journal.Coach(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"feedback": feedback})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.journal.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.journal.ListGoals(r.Context(), model.GoalStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goals": goals})
}

func (s *Server) addGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := s.journal.AddGoal(r.Context(), req.Text, req.Deadline)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) setGoalStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	goal, err := s.journal.SetGoalStatus(r.Context(), model.GoalID(chi.URLParam(r, "id")), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.journal.DeleteGoal(r.Context(), model.GoalID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
