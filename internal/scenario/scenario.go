package scenario

import (
	"context"
	"time"

	"github.com/v0xg/roleverify/internal/artifact"
	"github.com/v0xg/roleverify/internal/executor"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/inspect"
	"github.com/v0xg/roleverify/internal/locator"
)

// Contract with the application under test. Renaming any of these on the
// application side breaks the scenario.
const (
	EditorHeading      = "Prompt Contract Editor"
	ProTierLabel       = "Pro Advanced contract-based prompts for professional developers."
	GeneratorTitle     = "Generate Role with AI"
	PersonaPlaceholder = "e.g., 'A witty pirate captain who explains things in nautical terms.'"
	PersonaText        = "A friendly and helpful AI assistant."
	SubmitLabel        = "Generate Role"
	LoadingLabel       = "Generating..."
	EditorPanelCSS     = `.space-y-6.bg-slate-800\/30`
)

// Locators used by the scenario
var (
	Heading     = locator.ByRole("heading", EditorHeading)
	ProTier     = locator.ByRole("button", ProTierLabel)
	Generator   = locator.ByTitle(GeneratorTitle)
	Persona     = locator.ByPlaceholder(PersonaPlaceholder)
	Submit      = locator.ByRole("button", SubmitLabel).Exactly()
	Loading     = locator.ByRole("button", LoadingLabel).Exactly()
	EditorPanel = locator.ByCSS(EditorPanelCSS)
)

// Driver starts browser sessions
type Driver interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is one browser process. Release must be idempotent.
type Session interface {
	Open(ctx context.Context, url string) (Page, error)
	Release() error
}

// Page is one navigated tab
type Page interface {
	Perform(ctx context.Context, step executor.Step) error
	Expect(ctx context.Context, a expect.Assertion) error
	Capture(ctx context.Context, req artifact.Request) (*artifact.Artifact, error)
	Snapshot(ctx context.Context) (*inspect.PageMap, error)
}

// Options tune the fixed scenario. Zero values fall back to the defaults.
type Options struct {
	URL              string
	Output           string
	ReadinessTimeout time.Duration
	ActionTimeout    time.Duration
	AssertTimeout    time.Duration
	MaxWidth         uint
	Highlight        bool
}

const (
	DefaultURL              = "http://localhost:3000"
	DefaultOutput           = "verification/verification.png"
	DefaultReadinessTimeout = 10 * time.Second
)

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = DefaultURL
	}
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	if o.ReadinessTimeout <= 0 {
		o.ReadinessTimeout = DefaultReadinessTimeout
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = executor.DefaultTimeout
	}
	if o.AssertTimeout <= 0 {
		o.AssertTimeout = expect.DefaultTimeout
	}
	return o
}

// Transition moves the scenario into To
type Transition struct {
	Name string
	To   State
	Run  func(ctx context.Context, st *run) error
}

// run is the transient state of one execution
type run struct {
	driver   Driver
	session  Session
	page     Page
	artifact *artifact.Artifact
}

// Transitions returns the fixed, ordered scenario
func Transitions(opts Options) []Transition {
	opts = opts.withDefaults()

	step := func(s executor.Step) func(context.Context, *run) error {
		s.Timeout = opts.ActionTimeout
		return func(ctx context.Context, st *run) error {
			return st.page.Perform(ctx, s)
		}
	}

	return []Transition{
		{
			Name: "Launching browser",
			To:   SessionAcquired,
			Run: func(ctx context.Context, st *run) error {
				s, err := st.driver.Acquire(ctx)
				if err != nil {
					return err
				}
				st.session = s
				return nil
			},
		},
		{
			Name: "Opening " + opts.URL,
			To:   Navigated,
			Run: func(ctx context.Context, st *run) error {
				p, err := st.session.Open(ctx, opts.URL)
				if err != nil {
					return err
				}
				st.page = p
				return nil
			},
		},
		{
			Name: "Waiting for " + EditorHeading,
			To:   Ready,
			Run: func(ctx context.Context, st *run) error {
				err := st.page.Expect(ctx, expect.Assertion{
					Target:    Heading,
					Condition: expect.Visible,
					Timeout:   opts.ReadinessTimeout,
				})
				return failure.Reclassify(err, failure.AssertionTimeout, failure.ReadinessTimeout)
			},
		},
		{
			Name: "Switching to Pro tier",
			To:   TierSelected,
			Run:  step(executor.Click("Switching to Pro tier", ProTier)),
		},
		{
			Name: "Revealing role generator",
			To:   GeneratorRevealed,
			Run:  step(executor.Click("Revealing role generator", Generator)),
		},
		{
			Name: "Filling persona",
			To:   PersonaFilled,
			Run:  step(executor.Fill("Filling persona", Persona, PersonaText).Requiring(expect.Enabled)),
		},
		{
			Name: "Clicking " + SubmitLabel,
			To:   Submitted,
			Run:  step(executor.Click("Clicking "+SubmitLabel, Submit)),
		},
		{
			Name: "Waiting for loading state",
			To:   LoadingAsserted,
			Run: func(ctx context.Context, st *run) error {
				return st.page.Expect(ctx, expect.Assertion{
					Target:    Loading,
					Condition: expect.Visible,
					Timeout:   opts.AssertTimeout,
				})
			},
		},
		{
			Name: "Capturing editor panel",
			To:   Captured,
			Run: func(ctx context.Context, st *run) error {
				req := artifact.Request{
					Target:   EditorPanel,
					Path:     opts.Output,
					MaxWidth: opts.MaxWidth,
				}
				if opts.Highlight {
					hl := Loading
					req.Highlight = &hl
				}
				a, err := st.page.Capture(ctx, req)
				if err != nil {
					return err
				}
				st.artifact = a
				return nil
			},
		},
	}
}
