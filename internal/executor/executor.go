package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/locator"
)

const (
	// DefaultTimeout bounds a step from resolution to completed action
	DefaultTimeout = 30 * time.Second
	// stableFor is how long an element must keep its shape before it is clicked
	stableFor = 100 * time.Millisecond
)

// Run executes one step against page. Errors are *failure.Error named after
// the step.
func Run(ctx context.Context, page *rod.Page, step Step) error {
	if err := step.Validate(); err != nil {
		return failure.WithStep(err, step.Name)
	}

	var err error
	switch step.Kind {
	case ActionNavigate:
		err = navigate(ctx, page, step)
	case ActionClick:
		err = click(ctx, page, step)
	case ActionFill:
		err = fill(ctx, page, step)
	}
	return failure.WithStep(err, step.Name)
}

func navigate(ctx context.Context, page *rod.Page, step Step) error {
	ctx, cancel := context.WithTimeout(ctx, step.timeout())
	defer cancel()

	p := page.Context(ctx)
	if err := p.Navigate(step.URL); err != nil {
		return failure.New(failure.NavigationError, "", fmt.Errorf("navigate to %s: %w", step.URL, err))
	}
	if err := p.WaitLoad(); err != nil {
		return failure.New(failure.NavigationError, "", fmt.Errorf("wait for load of %s: %w", step.URL, err))
	}
	return nil
}

// click waits for the target to become actionable, then clicks it
func click(ctx context.Context, page *rod.Page, step Step) error {
	ctx, cancel := context.WithTimeout(ctx, step.timeout())
	defer cancel()

	el, err := actionable(ctx, page, step)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return failure.New(failure.Timeout, step.Target.String(), fmt.Errorf("click: %w", err))
	}
	return nil
}

// fill replaces the target's value with step.Text
func fill(ctx context.Context, page *rod.Page, step Step) error {
	if step.Require != "" {
		err := expect.Check(ctx, page, step.precondition())
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, step.timeout())
	defer cancel()

	el, err := actionable(ctx, page, step)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return failure.New(failure.Timeout, step.Target.String(), fmt.Errorf("select existing text: %w", err))
	}
	if err := el.Input(step.Text); err != nil {
		return failure.New(failure.Timeout, step.Target.String(), fmt.Errorf("input text: %w", err))
	}
	return nil
}

// actionable resolves the first match of the step's target and waits until it
// is visible, stable and enabled. A target that never resolves is
// ElementNotFound; one that resolves but never becomes actionable is Timeout.
func actionable(ctx context.Context, page *rod.Page, step Step) (*rod.Element, error) {
	loc := locator.New(page, step.Target)
	start := time.Now()

	var el *rod.Element
	_, err := expect.Poll(ctx, step.timeout(), expect.PollInterval, func(ctx context.Context) (bool, error) {
		found, err := loc.First(ctx)
		if err != nil {
			return false, err
		}
		el = found
		return el != nil, nil
	})
	if err != nil {
		return nil, &failure.Error{
			Kind:    failure.ElementNotFound,
			Locator: step.Target.String(),
			Elapsed: time.Since(start),
			Err:     err,
		}
	}

	el = el.Context(ctx)
	waits := []struct {
		what string
		wait func() error
	}{
		{"visible", el.WaitVisible},
		{"stable", func() error { return el.WaitStable(stableFor) }},
		{"enabled", el.WaitEnabled},
	}
	for _, w := range waits {
		if err := w.wait(); err != nil {
			return nil, &failure.Error{
				Kind:    failure.Timeout,
				Locator: step.Target.String(),
				Elapsed: time.Since(start),
				Err:     fmt.Errorf("waiting for element to be %s: %w", w.what, err),
			}
		}
	}
	return el, nil
}
