// Package dedupe runs the near-duplicate workflow over one working set:
// scan, hash, sweep, threshold selection, clustering, keeper selection,
// confirmation and deletion.
package dedupe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-dedup/internal/deletion"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
	"github.com/rs/zerolog/log"
)

// Stage is a step of a run.
type Stage string

const (
	StageScan                  Stage = "scan"
	StageHash                  Stage = "hash"
	StageSweep                 Stage = "sweep"
	StageSelectThreshold       Stage = "select_threshold"
	StageBuildGraph            Stage = "build_graph"
	StageCluster               Stage = "cluster"
	StageSelectRepresentatives Stage = "select_representatives"
	StageConfirm               Stage = "confirm"
	StageDelete                Stage = "delete"
)

// State is the terminal state of a run.
type State string

const (
	// StateCancelled means a decision was declined; nothing was written.
	StateCancelled State = "cancelled"
	// StateCompleted means the run finished with no failed deletions.
	StateCompleted State = "completed"
	// StatePartial means at least one deletion failed or the batch was interrupted.
	StatePartial State = "partial"
)

// ErrNoDeleter is returned by a destructive run on an engine built without a deleter.
var ErrNoDeleter = errors.New("no deleter configured")

// Deleter applies a decision set: targets are removed, keep must survive.
// *deletion.Coordinator implements it.
type Deleter interface {
	Apply(ctx context.Context, targets, keep []string) (*deletion.Summary, error)
}

// Options configures one run of the engine.
type Options struct {
	Dir        string
	Scan       fingerprint.ScanOptions
	Hash       fingerprint.HashOptions
	Thresholds []int // sweep thresholds; empty skips the sweep
	Linkage    similarity.Linkage
	DryRun     bool
	OnStage    func(Stage) // optional, called when a stage starts
}

// Engine drives a run from scan to deletion.
type Engine struct {
	policy  Policy
	decider DecisionProvider
	deleter Deleter
}

// NewEngine creates an engine. deleter may be nil for engines that only run
// dry; a nil policy means ShortestName.
func NewEngine(policy Policy, decider DecisionProvider, deleter Deleter) *Engine {
	if policy == nil {
		policy = ShortestName{}
	}
	return &Engine{policy: policy, decider: decider, deleter: deleter}
}

// Run executes one invocation. Every stage before DELETE is read-only, so a
// returned error or a cancelled state means the working set was not modified.
// Once deletion has started, Run returns the result together with any error.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	if !opts.DryRun && e.deleter == nil {
		return nil, ErrNoDeleter
	}

	res := newResult(uuid.NewString(), opts.DryRun)
	logger := log.With().Str("run_id", res.RunID).Str("dir", opts.Dir).Logger()
	enter := func(s Stage) {
		logger.Debug().Str("stage", string(s)).Msg("Entering stage")
		if opts.OnStage != nil {
			opts.OnStage(s)
		}
	}

	enter(StageScan)
	paths, err := fingerprint.Scan(opts.Dir, opts.Scan)
	if err != nil {
		return nil, err
	}

	enter(StageHash)
	ix, err := fingerprint.HashFiles(ctx, paths, opts.Hash)
	if err != nil {
		return nil, fmt.Errorf("hashing: %w", err)
	}
	res.Files = ix.Len()
	if len(ix.Skipped) > 0 {
		res.Skipped = ix.Skipped
	}

	m, err := similarity.NewMatrix(ix.Fingerprints)
	if err != nil {
		return nil, err
	}

	var report *SweepReport
	if len(opts.Thresholds) > 0 && m.Len() >= 2 {
		enter(StageSweep)
		report = Calibrator{Linkage: opts.Linkage}.SweepMatrix(m, opts.Thresholds)
		report.Skipped = res.Skipped
	}

	enter(StageSelectThreshold)
	threshold, ok, err := e.decider.ChooseThreshold(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("choosing threshold: %w", err)
	}
	if !ok {
		logger.Info().Msg("Threshold selection declined, nothing changed")
		res.State = StateCancelled
		return res, nil
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative, got %d", threshold)
	}

	// Always recluster at the chosen threshold instead of reusing a sweep entry.
	enter(StageBuildGraph)
	edges := m.Edges(threshold)

	enter(StageCluster)
	clusters := similarity.Resolve(edges, opts.Linkage)

	enter(StageSelectRepresentatives)
	plan := newPlan(threshold, opts.Linkage, clusters, e.policy)
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	res.applyPlan(plan)

	logger.Info().
		Int("threshold", threshold).
		Int("files", res.Files).
		Int("clusters", len(plan.Clusters)).
		Int("to_delete", len(plan.ToDelete)).
		Bool("dry_run", opts.DryRun).
		Msg("Plan ready")

	if opts.DryRun || len(plan.ToDelete) == 0 {
		res.State = StateCompleted
		return res, nil
	}

	enter(StageConfirm)
	confirmed, err := e.decider.Confirm(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("confirming deletion: %w", err)
	}
	if !confirmed {
		logger.Info().Msg("Deletion declined, nothing changed")
		res.State = StateCancelled
		return res, nil
	}

	enter(StageDelete)
	summary, err := e.deleter.Apply(ctx, plan.ToDelete, plan.ToKeep)
	res.applySummary(summary)
	res.State = StateCompleted
	if err != nil || res.FailedDeleteCount > 0 {
		res.State = StatePartial
	}

	ev := logger.Info()
	if res.State == StatePartial {
		ev = logger.Warn()
	}
	ev.Str("state", string(res.State)).
		Int("deleted", res.DeletedCount).
		Int("missing", res.FilesMissing).
		Int("failed", res.FailedDeleteCount).
		Msg("Run finished")

	return res, err
}

// SweepDir scans and hashes opts.Dir and sweeps opts.Thresholds without
// asking for any decision. It never modifies the working set.
func SweepDir(ctx context.Context, opts Options) (*SweepReport, error) {
	paths, err := fingerprint.Scan(opts.Dir, opts.Scan)
	if err != nil {
		return nil, err
	}
	ix, err := fingerprint.HashFiles(ctx, paths, opts.Hash)
	if err != nil {
		return nil, fmt.Errorf("hashing: %w", err)
	}
	report, err := Calibrator{Linkage: opts.Linkage}.Sweep(ix.Fingerprints, opts.Thresholds)
	if err != nil {
		return nil, err
	}
	if len(ix.Skipped) > 0 {
		report.Skipped = ix.Skipped
	}
	return report, nil
}
