package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/types"
)

const defaultRunsLimit = 100

// RunsHandler handles queued runs and run history.
type RunsHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Dependencies, maxLimit int) *RunsHandler {
	return &RunsHandler{deps: deps, maxLimit: maxLimit}
}

// submitRequest mirrors POST /runs. Times are RFC3339.
type submitRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Query string `json:"query"`
}

func (s submitRequest) toQuery() (model.Query, error) {
	switch {
	case strings.TrimSpace(s.From) == "":
		return model.Query{}, errors.New("missing from")
	case strings.TrimSpace(s.To) == "":
		return model.Query{}, errors.New("missing to")
	}
	from, err := time.Parse(time.RFC3339, s.From)
	if err != nil {
		return model.Query{}, errors.New("invalid from; must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, s.To)
	if err != nil {
		return model.Query{}, errors.New("invalid to; must be RFC3339")
	}
	q := model.Query{From: from, To: to, Filter: s.Query}
	return q, q.Validate()
}

type submitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// HandleSubmit handles POST /runs requests.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_runs"
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := req.toQuery()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.Submit(r.Context(), q)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: id, Status: "queued"})
}

// HandleList handles GET /runs?limit=N requests. Without a limit the
// handler's cap applies.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_runs"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeFailure(w, NewKind(op, ErrBadRequest))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}

	runs, err := h.deps.Runs(n)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	out := make([]types.RunSummary, len(runs))
	for i, run := range runs {
		out[i] = types.SummarizeRun(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	run, err := h.deps.Run(id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
