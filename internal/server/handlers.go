package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"

	"TokenFSM/internal/automaton"
	"TokenFSM/internal/config"
	"TokenFSM/internal/lexicon"
	"TokenFSM/internal/modelstore"
	"TokenFSM/internal/pipeline"
)

// Handler holds HTTP handlers for the TokenFSM API.
type Handler struct {
	mgr    *StageManager
	logger *slog.Logger
}

// NewHandler creates a new Handler backed by the given StageManager.
func NewHandler(mgr *StageManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mgr: mgr, logger: logger}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stages", h.handleListStages)
	mux.HandleFunc("GET /stages/{name}", h.handleGetStage)

	// Training and recognition.
	mux.HandleFunc("POST /stages/{name}/learn", h.handleLearn)
	mux.HandleFunc("POST /stages/{name}/recognize", h.handleRecognize)

	// Models.
	mux.HandleFunc("GET /stages/{name}/model", h.handleGetModel)
	mux.HandleFunc("PUT /stages/{name}/model", h.handlePutModel)
	mux.HandleFunc("POST /stages/{name}/save", h.handleSave)
	mux.HandleFunc("GET /models", h.handleListModels)

	// Whole pipeline.
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
}

func (h *Handler) handleListStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stages": h.mgr.Infos(),
	})
}

func (h *Handler) handleGetStage(w http.ResponseWriter, r *http.Request) {
	info, err := h.mgr.Info(r.PathValue("name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Patterns []config.PatternConfig `json:"patterns"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if len(req.Patterns) == 0 {
		writeError(w, http.StatusBadRequest, "patterns must not be empty")
		return
	}

	name := r.PathValue("name")
	n, err := h.mgr.Learn(name, req.Patterns)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stage":   name,
		"learned": len(req.Patterns),
		"names":   n,
	})
}

type recognizeRequest struct {
	Text   string   `json:"text"`
	Tokens []string `json:"tokens"`
}

func (h *Handler) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if req.Text != "" && req.Tokens != nil {
		writeError(w, http.StatusBadRequest, "text and tokens are mutually exclusive")
		return
	}

	name := r.PathValue("name")
	doc, err := h.mgr.Recognize(r.Context(), name, req.Text, req.Tokens)
	if err != nil {
		h.fail(w, err)
		return
	}
	entities := doc.Stage(name)
	if entities == nil {
		entities = []pipeline.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stage":    name,
		"text":     doc.Text,
		"tokens":   doc.Terms(),
		"entities": entities,
	})
}

func (h *Handler) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, err := h.mgr.Model(r.PathValue("name"))
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(model))
}

func (h *Handler) handlePutModel(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}
	name := r.PathValue("name")
	if err := h.mgr.ImportModel(name, string(body)); err != nil {
		h.fail(w, err)
		return
	}
	info, err := h.mgr.Info(name)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	model, err := h.mgr.Save(name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("stage saved", "stage", name, "model", model)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stage": name,
		"model": model,
	})
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	names, err := h.mgr.StoredModels()
	if err != nil {
		h.fail(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": names,
	})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, err)
		return
	}

	doc, err := h.mgr.Analyze(r.Context(), req.Text)
	if err != nil {
		h.fail(w, err)
		return
	}
	entities := doc.Entities
	if entities == nil {
		entities = []pipeline.Entity{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":      doc.Text,
		"tokens":    doc.Terms(),
		"entities":  entities,
		"sentences": doc.Sentences(),
		"tags":      doc.Tags(),
		"sentiment": doc.Sentiment(),
	})
}

// --- Helpers ---

// fail maps err to a status code and writes it.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrStageNotFound),
		errors.Is(err, modelstore.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, automaton.ErrEmptyPattern),
		errors.Is(err, automaton.ErrReservedToken),
		errors.Is(err, automaton.ErrMalformedModel),
		errors.Is(err, lexicon.ErrUnknownID),
		errors.Is(err, modelstore.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
