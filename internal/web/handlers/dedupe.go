package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
	"github.com/rs/zerolog/log"
)

// DedupeHandler serves sweeps and dry-run plans. It never deletes anything.
// Runs are serialized because each one reads a whole working set.
type DedupeHandler struct {
	config *config.Config
	mu     sync.Mutex
}

// NewDedupeHandler creates a new dedupe handler
func NewDedupeHandler(cfg *config.Config) *DedupeHandler {
	return &DedupeHandler{config: cfg}
}

// DedupeRequest is the body of POST /sweep and POST /plan. Nil fields fall
// back to the configured defaults. Sweep reads the range fields, plan reads
// Threshold.
type DedupeRequest struct {
	Dir          string  `json:"dir"`
	HashSize     *int    `json:"hash_size,omitempty"`
	Preprocess   *bool   `json:"preprocess,omitempty"`
	Linkage      *string `json:"linkage,omitempty"`
	Recursive    *bool   `json:"recursive,omitempty"`
	Threshold    *int    `json:"threshold,omitempty"`
	MinThreshold *int    `json:"min_threshold,omitempty"`
	MaxThreshold *int    `json:"max_threshold,omitempty"`
	Step         *int    `json:"step,omitempty"`
}

// merge returns the configured defaults with the request's overrides applied.
func (req *DedupeRequest) merge(d config.DedupeConfig) config.DedupeConfig {
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setBool := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&d.HashSize, req.HashSize)
	setInt(&d.Threshold, req.Threshold)
	setInt(&d.MinThreshold, req.MinThreshold)
	setInt(&d.MaxThreshold, req.MaxThreshold)
	setInt(&d.Step, req.Step)
	setBool(&d.Preprocess, req.Preprocess)
	setBool(&d.Recursive, req.Recursive)
	if req.Linkage != nil {
		d.Linkage = *req.Linkage
	}
	return d
}

// options validates the merged settings and builds dry-run options.
func (h *DedupeHandler) options(dir string, d config.DedupeConfig) (dedupe.Options, error) {
	if dir == "" {
		return dedupe.Options{}, errors.New("dir is required")
	}
	d.Delete = false
	cfg := config.Config{Dedupe: d}
	if err := cfg.Validate(); err != nil {
		return dedupe.Options{}, err
	}
	return dedupe.OptionsFromConfig(d, dir)
}

// Sweep reports projected deletions for every threshold of the range.
func (h *DedupeHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	var req DedupeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	opts, err := h.options(req.Dir, req.merge(h.config.Dedupe))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	report, err := dedupe.SweepDir(r.Context(), opts)
	if err != nil {
		h.fail(w, req.Dir, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Plan returns the clusters and decision set at one threshold without deleting.
func (h *DedupeHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req DedupeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	d := req.merge(h.config.Dedupe)
	opts, err := h.options(req.Dir, d)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Thresholds = nil

	h.mu.Lock()
	defer h.mu.Unlock()

	engine := dedupe.NewEngine(dedupe.ShortestName{}, dedupe.FixedThreshold{Threshold: d.Threshold}, nil)
	res, err := engine.Run(r.Context(), opts)
	if err != nil {
		h.fail(w, req.Dir, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *DedupeHandler) fail(w http.ResponseWriter, dir string, err error) {
	if errors.Is(err, fingerprint.ErrScan) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	log.Error().Str("dir", sanitizeForLog(dir)).Err(err).Msg("Dedupe request failed")
	respondError(w, http.StatusInternalServerError, "dedupe failed")
}
