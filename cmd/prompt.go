package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
)

// consoleDecider answers the engine's decisions on the terminal.
// Without interactive it applies fallback; with assumeYes it confirms
// without asking.
type consoleDecider struct {
	fallback    int
	interactive bool
	assumeYes   bool
	out         io.Writer

	rl *readline.Instance
}

func newConsoleDecider(out io.Writer, fallback int, interactive, assumeYes bool) *consoleDecider {
	return &consoleDecider{fallback: fallback, interactive: interactive, assumeYes: assumeYes, out: out}
}

// Close releases the terminal if a prompt was shown.
func (d *consoleDecider) Close() error {
	if d.rl == nil {
		return nil
	}
	return d.rl.Close()
}

// readLine prompts once. ok is false on Ctrl-C or EOF.
func (d *consoleDecider) readLine(prompt string) (line string, ok bool, err error) {
	if d.rl == nil {
		rl, err := readline.NewEx(&readline.Config{
			InterruptPrompt: "^C",
			EOFPrompt:       "",
			Stdout:          d.out,
		})
		if err != nil {
			return "", false, fmt.Errorf("failed to create readline: %w", err)
		}
		d.rl = rl
	}
	d.rl.SetPrompt(prompt)
	line, err = d.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return strings.TrimSpace(line), true, nil
}

func (d *consoleDecider) ChooseThreshold(ctx context.Context, report *dedupe.SweepReport) (int, bool, error) {
	if !d.interactive || report == nil {
		return d.fallback, true, nil
	}

	printSweep(d.out, report)
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	for {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		line, ok, err := d.readLine(cyan(fmt.Sprintf("Threshold to apply (blank to cancel) [%d]: ", d.fallback)))
		if err != nil || !ok || line == "" {
			return 0, false, err
		}
		threshold, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(d.out, red("Not a number: "+line))
			continue
		}
		if _, found := report.Entry(threshold); !found {
			fmt.Fprintln(d.out, red(fmt.Sprintf("%d is not one of the swept thresholds", threshold)))
			continue
		}
		return threshold, true, nil
	}
}

func (d *consoleDecider) Confirm(ctx context.Context, plan *dedupe.Plan) (bool, error) {
	printPlan(d.out, plan)
	if d.assumeYes {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	line, ok, err := d.readLine(yellow(fmt.Sprintf("Delete %d files? [y/N] ", len(plan.ToDelete))))
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// printSweep renders the calibration table.
func printSweep(out io.Writer, report *dedupe.SweepReport) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %d images\n\n", bold("Threshold sweep over"), report.Files)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THRESHOLD\tCLUSTERS\tWOULD REMOVE")
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%d\t%d\t%d\n", e.Threshold, len(e.Clusters), e.ProjectedDeletes)
	}
	_ = w.Flush()

	if len(report.Skipped) > 0 {
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Fprintf(out, "\n%s\n", gray(fmt.Sprintf("%d files could not be decoded and were skipped", len(report.Skipped))))
	}
	fmt.Fprintln(out)
}

// printPlan lists every cluster with its keeper first.
func printPlan(out io.Writer, plan *dedupe.Plan) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(out, "%s threshold %d, %s linkage: %d clusters, %d files to remove\n",
		bold("Plan:"), plan.Threshold, plan.Linkage, len(plan.Clusters), len(plan.ToDelete))
	for i, c := range plan.Clusters {
		keeper := plan.ToKeep[i]
		fmt.Fprintf(out, "\nCluster %d (%s)\n", i+1, filepath.Dir(keeper))
		fmt.Fprintf(out, "  %s %s\n", green("keep  "), filepath.Base(keeper))
		for _, id := range c {
			if id != keeper {
				fmt.Fprintf(out, "  %s %s\n", red("remove"), filepath.Base(id))
			}
		}
	}
	fmt.Fprintln(out)
}
