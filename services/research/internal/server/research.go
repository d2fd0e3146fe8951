package server

import (
	"net/http"
	"strconv"
	"strings"

	"researchduo/internal/metrics"
	"researchduo/internal/util"
	"researchduo/pkg/domain"
	"researchduo/services/research/internal/app"
)

type researchRequest struct {
	Topic string `json:"topic"`
}

type researchResponse struct {
	ID        string      `json:"id"`
	RawReport string      `json:"raw_report"`
	Step      domain.Step `json:"step"`
}

type refineRequest struct {
	ID       string `json:"id"`
	Feedback string `json:"feedback"`
}

type refineResponse struct {
	RefinedReport string      `json:"refined_report"`
	Step          domain.Step `json:"step"`
}

type createPostRequest struct {
	ID           string `json:"id"`
	Requirements string `json:"requirements"`
}

type createPostResponse struct {
	FinalPost string      `json:"final_post"`
	Step      domain.Step `json:"step"`
}

type artifactResponse struct {
	ID          string      `json:"id"`
	Topic       string      `json:"topic"`
	Step        domain.Step `json:"step"`
	CurrentStep domain.Step `json:"current_step"`
	Content     string      `json:"content"`
	CanAdvance  bool        `json:"can_advance"`
	CanRetreat  bool        `json:"can_retreat"`
	NextStep    domain.Step `json:"next_step,omitempty"`
	PrevStep    domain.Step `json:"prev_step,omitempty"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req researchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.allowGeneration(w, r, identity, metrics.OperationResearch) {
		return
	}
	rec, err := s.app.StartResearch(r.Context(), identity, req.Topic)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, researchResponse{ID: rec.ID, RawReport: rec.RawReport, Step: rec.Step})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req refineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.allowGeneration(w, r, identity, metrics.OperationRefine) {
		return
	}
	rec, err := s.app.Refine(r.Context(), identity, req.ID, req.Feedback)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refineResponse{RefinedReport: deref(rec.RefinedReport), Step: rec.Step})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.allowGeneration(w, r, identity, metrics.OperationCreatePost) {
		return
	}
	rec, err := s.app.CreatePost(r.Context(), identity, req.ID, req.Requirements)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createPostResponse{FinalPost: deref(rec.FinalPost), Step: rec.Step})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	records, err := s.app.ListHistory(r.Context(), identity)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list history failed", "err", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

func (s *Server) handleResearchByID(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	id := strings.TrimPrefix(r.URL.Path, "/api/research/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	var position domain.Step
	if raw := r.URL.Query().Get("step"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !domain.Step(n).Valid() {
			writeError(w, http.StatusBadRequest, app.ErrInvalidStep.Error())
			return
		}
		position = domain.Step(n)
	}
	view, err := s.app.ViewArtifact(r.Context(), identity, id, position)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactResponse{
		ID:          view.Record.ID,
		Topic:       view.Record.Topic,
		Step:        view.Record.Step,
		CurrentStep: view.CurrentStep,
		Content:     view.Content,
		CanAdvance:  view.CanAdvance,
		CanRetreat:  view.CanRetreat,
		NextStep:    view.NextStep,
		PrevStep:    view.PreviousStep,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
