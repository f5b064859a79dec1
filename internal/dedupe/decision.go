package dedupe

import "context"

// DecisionProvider supplies the two external decisions of a run. Both are
// asked only after every read-only stage has finished, so declining leaves
// the working set untouched.
type DecisionProvider interface {
	// ChooseThreshold picks the threshold to apply. report is nil when no
	// sweep was run. Returning ok=false cancels the run.
	ChooseThreshold(ctx context.Context, report *SweepReport) (threshold int, ok bool, err error)

	// Confirm approves the deletion of plan.ToDelete.
	Confirm(ctx context.Context, plan *Plan) (bool, error)
}

// FixedThreshold is a non-interactive provider: it always applies Threshold
// and confirms deletion only when AutoConfirm is set.
type FixedThreshold struct {
	Threshold   int
	AutoConfirm bool
}

func (f FixedThreshold) ChooseThreshold(context.Context, *SweepReport) (int, bool, error) {
	return f.Threshold, true, nil
}

func (f FixedThreshold) Confirm(context.Context, *Plan) (bool, error) {
	return f.AutoConfirm, nil
}
