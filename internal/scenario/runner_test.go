package scenario

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0xg/roleverify/internal/artifact"
	"github.com/v0xg/roleverify/internal/executor"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/inspect"
)

func init() {
	color.NoColor = true
}

// fakes number every browser interaction: 0 acquire, 1 open, 2.. page calls,
// matching the transition order
type harness struct {
	failAt  int
	failErr error

	n          int
	calls      []string
	acquired   int
	releases   int
	releaseErr error
	snapshots  int
	snapErr    error
	requests   []artifact.Request
}

func newHarness(failAt int, err error) *harness {
	return &harness{failAt: failAt, failErr: err}
}

func (h *harness) next(call string) error {
	i := h.n
	h.n++
	h.calls = append(h.calls, call)
	if i == h.failAt {
		return h.failErr
	}
	return nil
}

func (h *harness) Acquire(context.Context) (Session, error) {
	h.acquired++
	if err := h.next("acquire"); err != nil {
		return nil, err
	}
	return (*fakeSession)(h), nil
}

type fakeSession harness

func (s *fakeSession) Open(_ context.Context, url string) (Page, error) {
	h := (*harness)(s)
	if err := h.next("open " + url); err != nil {
		return nil, err
	}
	return (*fakePage)(h), nil
}

func (s *fakeSession) Release() error {
	s.releases++
	return s.releaseErr
}

type fakePage harness

func (p *fakePage) Perform(_ context.Context, step executor.Step) error {
	return (*harness)(p).next(step.String())
}

func (p *fakePage) Expect(_ context.Context, a expect.Assertion) error {
	return (*harness)(p).next(a.String())
}

func (p *fakePage) Capture(_ context.Context, req artifact.Request) (*artifact.Artifact, error) {
	h := (*harness)(p)
	h.requests = append(h.requests, req)
	if err := h.next("capture " + req.Path); err != nil {
		return nil, err
	}
	return &artifact.Artifact{Path: req.Path, Bytes: []byte{0x89}, Width: 640, Height: 480}, nil
}

func (p *fakePage) Snapshot(context.Context) (*inspect.PageMap, error) {
	p.snapshots++
	if p.snapErr != nil {
		return nil, p.snapErr
	}
	return &inspect.PageMap{URL: DefaultURL, Elements: []inspect.Element{{Tag: "button", Text: "Starter"}}}, nil
}

func execute(t *testing.T, h *harness, verbose bool) (*Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	r := New(h, Options{}, &out, nil, verbose)
	res, err := r.Run(context.Background())
	require.NotNil(t, res)
	return res, out.String(), err
}

func TestRunHappyPath(t *testing.T) {
	h := newHarness(-1, nil)
	res, out, err := execute(t, h, false)
	require.NoError(t, err)

	assert.Equal(t, Captured, res.Reached)
	assert.Equal(t, []State{
		Init, SessionAcquired, Navigated, Ready, TierSelected, GeneratorRevealed,
		PersonaFilled, Submitted, LoadingAsserted, Captured, Torndown,
	}, res.Trace)
	assert.Equal(t, 1, h.releases)
	require.NotNil(t, res.Artifact)
	assert.Equal(t, DefaultOutput, res.Artifact.Path)
	assert.NotEmpty(t, res.RunID)

	assert.Equal(t, []string{
		"acquire",
		"open " + DefaultURL,
		`expect role=heading[name*="Prompt Contract Editor"] to be visible`,
		`click → role=button[name*="Pro Advanced contract-based prompts for professional developers."]`,
		`click → title*="Generate Role with AI"`,
		`fill → placeholder*="e.g., 'A witty pirate captain who explains things in nautical terms.'" (text: "A friendly and helpful AI assistant.")`,
		`click → role=button[name="Generate Role"]`,
		`expect role=button[name="Generating..."] to be visible`,
		"capture " + DefaultOutput,
	}, h.calls)

	assert.Contains(t, out, "→ Switching to Pro tier... done")
	assert.Contains(t, out, "→ Waiting for loading state... done")
	assert.Contains(t, out, "→ Closing browser... done")
	assert.Contains(t, out, "Saved "+DefaultOutput)
}

func TestRunAbortsAtEveryTransition(t *testing.T) {
	transitions := Transitions(Options{})
	kinds := []failure.Kind{
		failure.LaunchError,
		failure.NavigationError,
		failure.AssertionTimeout, // reported as ReadinessTimeout
		failure.ElementNotFound,
		failure.Timeout,
		failure.PreconditionFailed,
		failure.Timeout,
		failure.AssertionTimeout,
		failure.CaptureError,
	}
	require.Len(t, kinds, len(transitions))

	for i, tr := range transitions {
		t.Run(tr.Name, func(t *testing.T) {
			h := newHarness(i, failure.New(kinds[i], "", errors.New("injected")))
			res, out, err := execute(t, h, false)
			require.Error(t, err)

			fe, ok := failure.As(err)
			require.True(t, ok)
			assert.Equal(t, tr.Name, fe.Step)

			want := Init
			if i > 0 {
				want = transitions[i-1].To
			}
			assert.Equal(t, want, res.Reached)
			assert.Equal(t, Torndown, res.Trace[len(res.Trace)-1])
			assert.Len(t, h.calls, i+1, "no later step may run")
			assert.Contains(t, out, "→ "+tr.Name+"... failed")

			if i == 0 {
				assert.Equal(t, 0, h.releases, "nothing acquired, nothing released")
			} else {
				assert.Equal(t, 1, h.releases)
			}
		})
	}
}

func TestReadinessTimeoutStopsScenario(t *testing.T) {
	h := newHarness(2, failure.New(failure.AssertionTimeout, Heading.String(), context.DeadlineExceeded))
	res, _, err := execute(t, h, false)

	assert.Equal(t, failure.ReadinessTimeout, failure.KindOf(err))
	assert.Equal(t, Navigated, res.Reached)
	assert.Len(t, h.calls, 3)
	assert.Equal(t, 1, h.releases)
}

func TestTierMismatchNeverClicks(t *testing.T) {
	h := newHarness(3, failure.New(failure.ElementNotFound, ProTier.String(), context.DeadlineExceeded))
	_, _, err := execute(t, h, false)

	assert.Equal(t, failure.ElementNotFound, failure.KindOf(err))
	for _, c := range h.calls[4:] {
		t.Errorf("unexpected call after tier failure: %s", c)
	}
}

func TestCaptureFailureIsDistinctFromAssertion(t *testing.T) {
	h := newHarness(8, failure.New(failure.CaptureError, EditorPanel.String(), errors.New("zero-size capture region")))
	res, _, err := execute(t, h, false)
	assert.Equal(t, failure.CaptureError, failure.KindOf(err))
	assert.Equal(t, LoadingAsserted, res.Reached)
	assert.Nil(t, res.Artifact)

	h = newHarness(7, failure.New(failure.AssertionTimeout, Loading.String(), context.DeadlineExceeded))
	res, _, err = execute(t, h, false)
	assert.Equal(t, failure.AssertionTimeout, failure.KindOf(err))
	assert.Equal(t, Submitted, res.Reached)
}

func TestReleaseErrorDoesNotMaskFailure(t *testing.T) {
	h := newHarness(4, failure.New(failure.Timeout, Generator.String(), context.DeadlineExceeded))
	h.releaseErr = errors.New("browser already gone")

	_, out, err := execute(t, h, false)
	assert.Equal(t, failure.Timeout, failure.KindOf(err))
	assert.Equal(t, 1, h.releases)
	assert.Contains(t, out, "→ Closing browser... failed")
}

func TestReleaseErrorAfterSuccessIsNotAFailure(t *testing.T) {
	h := newHarness(-1, nil)
	h.releaseErr = errors.New("browser already gone")

	res, _, err := execute(t, h, false)
	assert.NoError(t, err)
	assert.Equal(t, Captured, res.Reached)
}

func TestUnclassifiedErrorKeepsStep(t *testing.T) {
	h := newHarness(1, errors.New("dial tcp 127.0.0.1:3000: connect: connection refused"))
	_, _, err := execute(t, h, false)

	fe, ok := failure.As(err)
	require.True(t, ok)
	assert.Equal(t, "Opening "+DefaultURL, fe.Step)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	h := newHarness(-1, nil)
	r := New(h, Options{}, &bytes.Buffer{}, nil, false)

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Reached, second.Reached)
	assert.Equal(t, first.Trace, second.Trace)
	assert.NotEqual(t, first.RunID, second.RunID)
	require.Len(t, h.requests, 2)
	assert.Equal(t, h.requests[0].Path, h.requests[1].Path)
	assert.Equal(t, 2, h.releases)
}

func TestVerboseFailurePrintsSnapshot(t *testing.T) {
	h := newHarness(5, failure.New(failure.PreconditionFailed, Persona.String(), context.DeadlineExceeded))
	_, out, _ := execute(t, h, true)

	assert.Equal(t, 1, h.snapshots)
	assert.Contains(t, out, "<button> Starter")

	h = newHarness(5, failure.New(failure.PreconditionFailed, Persona.String(), context.DeadlineExceeded))
	execute(t, h, false)
	assert.Equal(t, 0, h.snapshots)
}

func TestSnapshotFailureLogsRunID(t *testing.T) {
	h := newHarness(5, failure.New(failure.PreconditionFailed, Persona.String(), context.DeadlineExceeded))
	h.snapErr = errors.New("target closed")

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	res, err := New(h, Options{}, &bytes.Buffer{}, log, true).Run(context.Background())
	require.Error(t, err)

	var line string
	for _, l := range strings.Split(logs.String(), "\n") {
		if strings.Contains(l, "page snapshot failed") {
			line = l
		}
	}
	require.NotEmpty(t, line, logs.String())
	assert.Contains(t, line, "run_id="+res.RunID)
	assert.Contains(t, line, "target closed")
}

func TestCancelledContextRunsNothing(t *testing.T) {
	h := newHarness(-1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(h, Options{}, &bytes.Buffer{}, nil, false).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Init, res.Reached)
	assert.Empty(t, h.calls)
	assert.Equal(t, 0, h.releases)
}

func TestTransitionsApplyOptions(t *testing.T) {
	h := newHarness(-1, nil)
	opts := Options{
		URL:           "http://127.0.0.1:4000",
		Output:        "out/shot.png",
		MaxWidth:      800,
		Highlight:     true,
		ActionTimeout: 2 * time.Second,
	}
	r := New(h, opts, &bytes.Buffer{}, nil, false)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "open http://127.0.0.1:4000", h.calls[1])
	require.Len(t, h.requests, 1)
	req := h.requests[0]
	assert.Equal(t, "out/shot.png", req.Path)
	assert.Equal(t, uint(800), req.MaxWidth)
	require.NotNil(t, req.Highlight)
	assert.Equal(t, Loading, *req.Highlight)
	assert.Equal(t, EditorPanel, req.Target)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "LoadingAsserted", LoadingAsserted.String())
	assert.Equal(t, "Torndown", Torndown.String())
	assert.Equal(t, "State(99)", State(99).String())
}
