package dedupe

import (
	"fmt"
	"slices"

	"github.com/corona10/goimagehash"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
	"github.com/rs/zerolog/log"
)

// Thresholds returns start, start+step, ... up to and including end.
func Thresholds(start, end, step int) ([]int, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid threshold range %d..%d", start, end)
	}
	if step <= 0 {
		return nil, fmt.Errorf("threshold step must be positive, got %d", step)
	}
	out := make([]int, 0, (end-start)/step+1)
	for t := start; t <= end; t += step {
		out = append(out, t)
	}
	return out, nil
}

// SweepEntry is the outcome of clustering at one threshold.
type SweepEntry struct {
	Threshold        int                  `json:"threshold"`
	Clusters         []similarity.Cluster `json:"clusters"`
	ProjectedDeletes int                  `json:"projected_deletes"`
}

// SweepReport lists sweep entries in ascending threshold order.
type SweepReport struct {
	Files   int                `json:"files"`
	Entries []SweepEntry       `json:"entries"`
	Skipped []fingerprint.Skip `json:"skipped,omitempty"`
}

// Entry returns the entry for threshold, if it was part of the sweep.
func (r *SweepReport) Entry(threshold int) (SweepEntry, bool) {
	for _, e := range r.Entries {
		if e.Threshold == threshold {
			return e, true
		}
	}
	return SweepEntry{}, false
}

// Calibrator evaluates clustering across a range of thresholds.
type Calibrator struct {
	Linkage similarity.Linkage
}

// Sweep clusters the fingerprint map at every threshold. It has no side
// effects. Under chain linkage ProjectedDeletes never decreases as the
// threshold grows, since a larger threshold only adds edges.
func (c Calibrator) Sweep(fps map[string]*goimagehash.ExtImageHash, thresholds []int) (*SweepReport, error) {
	m, err := similarity.NewMatrix(fps)
	if err != nil {
		return nil, err
	}
	return c.SweepMatrix(m, thresholds), nil
}

// SweepMatrix is Sweep over an already computed distance matrix.
func (c Calibrator) SweepMatrix(m *similarity.Matrix, thresholds []int) *SweepReport {
	sorted := slices.Clone(thresholds)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	report := &SweepReport{Files: m.Len(), Entries: make([]SweepEntry, 0, len(sorted))}
	for _, t := range sorted {
		clusters := similarity.Resolve(m.Edges(t), c.Linkage)
		if clusters == nil {
			clusters = []similarity.Cluster{}
		}
		report.Entries = append(report.Entries, SweepEntry{
			Threshold:        t,
			Clusters:         clusters,
			ProjectedDeletes: similarity.DeleteCount(clusters),
		})
		log.Debug().Int("threshold", t).Int("clusters", len(clusters)).Msg("Sweep step")
	}
	return report
}
