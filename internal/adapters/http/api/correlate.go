package api

import (
	"errors"
	"net/http"

	"github.com/okian/correlate/internal/domain/grouping"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/similarity"
	"github.com/okian/correlate/internal/domain/types"
)

// CorrelateHandler handles synchronous grouping and score explanation.
type CorrelateHandler struct {
	deps Dependencies
}

// NewCorrelateHandler creates a new correlate handler.
func NewCorrelateHandler(deps Dependencies) *CorrelateHandler {
	return &CorrelateHandler{deps: deps}
}

// correlateRequest is the body of POST /correlate. Omitted settings fall back
// to the service configuration. Normalize without weights rescales the
// service's configured weights.
type correlateRequest struct {
	Events    []model.Event      `json:"events"`
	Threshold *float64           `json:"threshold,omitempty"`
	Weights   similarity.Weights `json:"weights,omitempty"`
	Normalize bool               `json:"normalize,omitempty"`
	Strict    bool               `json:"strict,omitempty"`
}

func (c correlateRequest) options() []grouping.Option {
	var opts []grouping.Option
	if c.Threshold != nil {
		opts = append(opts, grouping.WithThreshold(*c.Threshold))
	}
	switch {
	case len(c.Weights) > 0 && c.Normalize:
		opts = append(opts, grouping.WithNormalizedWeights(c.Weights))
	case len(c.Weights) > 0:
		opts = append(opts, grouping.WithWeights(c.Weights))
	case c.Normalize:
		opts = append(opts, grouping.WithNormalize(true))
	}
	if c.Strict {
		opts = append(opts, grouping.WithStrict(true))
	}
	return opts
}

type correlateResponse struct {
	RunID       string               `json:"run_id"`
	Threshold   float64              `json:"threshold"`
	Weights     map[string]float64   `json:"weights"`
	Events      int                  `json:"events"`
	Comparisons int                  `json:"comparisons"`
	Groups      []types.GroupSummary `json:"groups"`
}

// HandleCorrelate handles POST /correlate requests.
func (h *CorrelateHandler) HandleCorrelate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_correlate"
	var req correlateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Events == nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing events")))
		return
	}

	run, err := h.deps.Correlate(r.Context(), req.Events, req.options()...)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, correlateResponse{
		RunID:       run.ID,
		Threshold:   run.Threshold,
		Weights:     run.Weights,
		Events:      run.EventCount,
		Comparisons: run.Comparisons,
		Groups:      types.SummarizeGroups(run.Groups),
	})
}

type explainRequest struct {
	A       model.Event        `json:"a"`
	B       model.Event        `json:"b"`
	Weights similarity.Weights `json:"weights,omitempty"`
}

// HandleExplain handles POST /explain requests.
func (h *CorrelateHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_explain"
	var req explainRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Explain(req.A, req.B, req.Weights))
}
