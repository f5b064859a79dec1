package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-dedup/internal/config"
)

// ConfigHandler exposes the effective dedupe defaults
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	HashSize     int      `json:"hash_size"`
	Bits         int      `json:"bits"`
	Threshold    int      `json:"threshold"`
	MinThreshold int      `json:"min_threshold"`
	MaxThreshold int      `json:"max_threshold"`
	Step         int      `json:"step"`
	Preprocess   bool     `json:"preprocess"`
	Linkage      string   `json:"linkage"`
	Recursive    bool     `json:"recursive"`
	Extensions   []string `json:"extensions"`
	DryRunOnly   bool     `json:"dry_run_only"`
}

// Get returns the defaults applied to requests that do not override them
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	d := h.config.Dedupe
	respondJSON(w, http.StatusOK, ConfigResponse{
		HashSize:     d.HashSize,
		Bits:         d.Bits(),
		Threshold:    d.Threshold,
		MinThreshold: d.MinThreshold,
		MaxThreshold: d.MaxThreshold,
		Step:         d.Step,
		Preprocess:   d.Preprocess,
		Linkage:      d.Linkage,
		Recursive:    d.Recursive,
		Extensions:   d.Extensions,
		DryRunOnly:   true,
	})
}
