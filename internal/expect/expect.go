package expect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/locator"
)

const (
	// DefaultTimeout applies when an Assertion has no timeout of its own
	DefaultTimeout = 5 * time.Second
	// PollInterval is the delay between two live queries
	PollInterval = 100 * time.Millisecond
)

// Condition is the observable state an assertion waits for
type Condition string

const (
	Visible Condition = "visible"
	Enabled Condition = "enabled"
)

// Assertion waits for Target to reach Condition within Timeout
type Assertion struct {
	Target    locator.Descriptor
	Condition Condition
	Timeout   time.Duration
}

func (a Assertion) String() string {
	return fmt.Sprintf("expect %s to be %s", a.Target, a.Condition)
}

func (a Assertion) timeout() time.Duration {
	if a.Timeout <= 0 {
		return DefaultTimeout
	}
	return a.Timeout
}

// observation is what one live query saw
type observation struct {
	Matched int
	Visible bool // at least one match is rendered
	Enabled bool // first match is not disabled
}

type observer func(ctx context.Context) (observation, error)

// Check polls the live locator until the assertion holds or its timeout elapses
func Check(ctx context.Context, page *rod.Page, a Assertion) error {
	return check(ctx, a, observeLocator(locator.New(page, a.Target)))
}

func observeLocator(loc *locator.Locator) observer {
	return func(ctx context.Context) (observation, error) {
		els, err := loc.All(ctx)
		if err != nil {
			return observation{}, err
		}
		obs := observation{Matched: len(els)}
		if len(els) == 0 {
			return obs, nil
		}
		for _, el := range els {
			if v, err := el.Visible(); err == nil && v {
				obs.Visible = true
				break
			}
		}
		disabled, err := els.First().Disabled()
		if err != nil {
			return obs, err
		}
		obs.Enabled = !disabled
		return obs, nil
	}
}

func check(ctx context.Context, a Assertion, observe observer) error {
	if err := a.Target.Validate(); err != nil {
		return failure.New(failure.ElementNotFound, a.Target.String(), err)
	}

	var last observation
	elapsed, err := Poll(ctx, a.timeout(), PollInterval, func(ctx context.Context) (bool, error) {
		obs, err := observe(ctx)
		if err != nil {
			return false, err
		}
		last = obs
		switch a.Condition {
		case Visible:
			return obs.Visible, nil
		case Enabled:
			return obs.Matched > 0 && obs.Enabled, nil
		}
		return false, fmt.Errorf("unknown condition %q", a.Condition)
	})
	if err == nil {
		return nil
	}

	kind := failure.AssertionTimeout
	if a.Condition == Enabled {
		kind = failure.PreconditionFailed
		if last.Matched == 0 {
			kind = failure.ElementNotFound
		}
	}
	return &failure.Error{
		Kind:    kind,
		Locator: a.Target.String(),
		Elapsed: elapsed,
		Err:     fmt.Errorf("not %s (%d matched): %w", a.Condition, last.Matched, err),
	}
}

// Poll calls probe every interval until it reports true or timeout elapses.
// Probe errors do not stop polling; the last one is reported on timeout.
func Poll(ctx context.Context, timeout, interval time.Duration, probe func(context.Context) (bool, error)) (time.Duration, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last error
	for {
		ok, err := probe(ctx)
		if ok {
			return time.Since(start), nil
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			last = err
		}

		select {
		case <-ctx.Done():
			if last != nil {
				return time.Since(start), fmt.Errorf("%w (last error: %v)", ctx.Err(), last)
			}
			return time.Since(start), ctx.Err()
		case <-ticker.C:
		}
	}
}
