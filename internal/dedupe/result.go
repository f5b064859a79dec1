package dedupe

import (
	"github.com/kozaktomas/photo-dedup/internal/deletion"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
)

// Result is returned by Engine.Run and doubles as the JSON payload of the
// CLI and the API.
type Result struct {
	RunID     string `json:"run_id"`
	State     State  `json:"state"`
	DryRun    bool   `json:"dry_run"`
	Threshold int    `json:"threshold"`
	Linkage   string `json:"linkage"`

	Clusters []similarity.Cluster `json:"clusters"`
	ToDelete []string             `json:"to_delete"`
	ToKeep   []string             `json:"to_keep"`

	DeletedCount       int                `json:"deleted_count"`
	FailedDeleteCount  int                `json:"failed_delete_count"`
	FilesMissing       int                `json:"files_missing"`
	RemovedFromSidecar int                `json:"removed_from_sidecar"`
	SidecarWritten     bool               `json:"sidecar_written"`
	Failures           []deletion.Failure `json:"failures,omitempty"`

	Files   int                `json:"files"`
	Skipped []fingerprint.Skip `json:"skipped"`
}

func newResult(runID string, dryRun bool) *Result {
	return &Result{
		RunID:    runID,
		DryRun:   dryRun,
		Clusters: []similarity.Cluster{},
		ToDelete: []string{},
		ToKeep:   []string{},
		Skipped:  []fingerprint.Skip{},
	}
}

func (r *Result) applyPlan(p *Plan) {
	r.Threshold = p.Threshold
	r.Linkage = p.Linkage
	r.Clusters = p.Clusters
	r.ToDelete = p.ToDelete
	r.ToKeep = p.ToKeep
}

func (r *Result) applySummary(s *deletion.Summary) {
	if s == nil {
		return
	}
	r.DeletedCount = s.FilesDeleted
	r.FailedDeleteCount = s.Failed
	r.FilesMissing = s.FilesMissing
	r.RemovedFromSidecar = s.RemovedFromSidecar
	r.SidecarWritten = s.SidecarWritten
	r.Failures = s.Failures
}
