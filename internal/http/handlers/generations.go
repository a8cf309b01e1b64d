package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"headshotpro/internal/generation"
	"headshotpro/internal/i18n"
)

type generationRequest struct {
	InputImageURL string `json:"inputImageUrl"`
	StyleID       string `json:"styleId"`
	Provider      string `json:"provider"`
	Size          string `json:"size"`
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	var req generationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, i18n.InvalidPayload)
		return
	}
	created, err := a.Generations.Submit(r.Context(), generation.SubmitRequest{
		UserID:        userID,
		InputImageURL: req.InputImageURL,
		StyleID:       req.StyleID,
		Provider:      req.Provider,
		Size:          req.Size,
	})
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, created)
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, r, http.StatusBadRequest, i18n.JobIDRequired)
		return
	}
	res, err := a.Generations.Status(r.Context(), userID, jobID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, res)
}

func (a *App) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	if a.requireUser(w, r) == "" {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, r, http.StatusBadRequest, i18n.JobIDRequired)
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"cancelled": a.Generations.Cancel(r.Context(), jobID)})
}

func (a *App) ListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := a.requireUser(w, r)
	if userID == "" {
		return
	}
	page, err := a.Generations.List(r.Context(), userID, queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, page)
}
