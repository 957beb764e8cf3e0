package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/v0xg/roleverify/internal/artifact"
	"github.com/v0xg/roleverify/internal/failure"
)

// diagnosticTimeout bounds the page snapshot taken after a failure
const diagnosticTimeout = 5 * time.Second

// Result describes one execution
type Result struct {
	RunID    string
	Reached  State   // last state entered before teardown
	Trace    []State // every state entered, ending with Torndown
	Artifact *artifact.Artifact
	Elapsed  time.Duration
}

// Runner executes the scenario once per Run call
type Runner struct {
	driver      Driver
	transitions []Transition
	out         io.Writer
	log         *slog.Logger
	verbose     bool
}

// New creates a runner for the fixed scenario. Progress markers go to out.
func New(driver Driver, opts Options, out io.Writer, log *slog.Logger, verbose bool) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		driver:      driver,
		transitions: Transitions(opts),
		out:         out,
		log:         log,
		verbose:     verbose,
	}
}

// Run executes every transition in order and always tears the session down
// exactly once. The returned error is the first failure, never a teardown
// error.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	res = &Result{RunID: uuid.NewString(), Reached: Init, Trace: []State{Init}}
	log := r.log.With("run_id", res.RunID)
	log.Info("scenario started", "transitions", len(r.transitions))

	st := &run{driver: r.driver}
	defer func() {
		r.teardown(st, log)
		res.Trace = append(res.Trace, Torndown)
		res.Artifact = st.artifact
		res.Elapsed = time.Since(start)
		if err != nil {
			log.Error("scenario failed", "reached", res.Reached, "kind", failure.KindOf(err), "error", err)
			return
		}
		log.Info("scenario passed", "reached", res.Reached, "elapsed", res.Elapsed)
	}()

	for _, t := range r.transitions {
		fmt.Fprintf(r.out, "→ %s... ", t.Name)
		stepStart := time.Now()

		stepErr := ctx.Err()
		if stepErr == nil {
			stepErr = t.Run(ctx, st)
		}
		if stepErr != nil {
			fmt.Fprintln(r.out, color.RedString("failed"))
			r.diagnose(ctx, st, log)
			return res, failure.WithStep(stepErr, t.Name)
		}

		fmt.Fprintln(r.out, color.GreenString("done"))
		log.Debug("transition complete", "to", t.To, "elapsed", time.Since(stepStart))
		res.Reached = t.To
		res.Trace = append(res.Trace, t.To)
	}

	if st.artifact != nil {
		fmt.Fprintf(r.out, "%s Saved %s (%dx%d)\n", color.GreenString("✓"), st.artifact.Path, st.artifact.Width, st.artifact.Height)
	}
	return res, nil
}

// teardown releases the session. Failures are logged so they never replace
// the error that ended the run.
func (r *Runner) teardown(st *run, log *slog.Logger) {
	if st.session == nil {
		log.Debug("no session to release")
		return
	}
	fmt.Fprintf(r.out, "→ Closing browser... ")
	if err := st.session.Release(); err != nil {
		fmt.Fprintln(r.out, color.YellowString("failed"))
		log.Warn("session release failed", "error", err)
		return
	}
	fmt.Fprintln(r.out, color.GreenString("done"))
}

// diagnose prints what was on screen when a transition failed
func (r *Runner) diagnose(ctx context.Context, st *run, log *slog.Logger) {
	if !r.verbose || st.page == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticTimeout)
	defer cancel()

	snap, err := st.page.Snapshot(ctx)
	if err != nil {
		log.Debug("page snapshot failed", "error", err)
		return
	}
	snap.Print(r.out, 25)
}
