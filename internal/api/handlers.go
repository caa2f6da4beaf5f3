// Marquee - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/recommend/storage"
)

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports 200 once a snapshot is serving.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	if !st.Trained {
		respondError(w, r, http.StatusServiceUnavailable, "NOT_READY", "models not trained", nil)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"status": "ready", "snapshot_id": st.SnapshotID})
}

// ModelStatus returns the engine status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.engine.Status())
}

// ListModels returns the metadata of every persisted model.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		respondData(w, r, http.StatusOK, []storage.Metadata{})
		return
	}
	list, err := h.models.List(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "STORAGE_ERROR", "failed to list models", err)
		return
	}
	if list == nil {
		list = []storage.Metadata{}
	}
	respondData(w, r, http.StatusOK, list)
}

// Retrain queues a training run.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	if h.retrainer == nil {
		respondError(w, r, http.StatusNotImplemented, "RETRAIN_UNAVAILABLE", "retraining is not configured", nil)
		return
	}
	if h.engine.Status().Training || !h.retrainer.TriggerRetrain() {
		respondError(w, r, http.StatusConflict, "TRAINING_IN_PROGRESS", "training already in progress", nil)
		return
	}
	logging.Ctx(r.Context()).Info().Msg("Retrain queued")
	respondData(w, r, http.StatusAccepted, map[string]string{"status": "queued"})
}

// WeightStats returns the hybrid weight statistics.
func (h *Handler) WeightStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, h.engine.WeightStatistics())
}
