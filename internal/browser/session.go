package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/v0xg/roleverify/internal/executor"
	"github.com/v0xg/roleverify/internal/failure"
	"github.com/v0xg/roleverify/internal/scenario"
)

// Options configures the browser
type Options struct {
	Bin            string // Browser binary; empty looks one up, then downloads Chromium
	Headless       bool
	Width          int
	Height         int
	LaunchTimeout  time.Duration // Bounds browser start, including a Chromium download
	ConnectTimeout time.Duration // Navigation budget for Open
	SettleTimeout  time.Duration // Upper bound for waiting on network idle after load
}

// DefaultOptions returns a headless 1280x720 browser
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		Width:          1280,
		Height:         720,
		LaunchTimeout:  2 * time.Minute,
		ConnectTimeout: 30 * time.Second,
		SettleTimeout:  5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.LaunchTimeout <= 0 {
		o.LaunchTimeout = d.LaunchTimeout
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = d.SettleTimeout
	}
	return o
}

// Driver launches a fresh browser per session
type Driver struct {
	opts Options
}

var _ scenario.Driver = (*Driver)(nil)

// NewDriver creates a driver with opts
func NewDriver(opts Options) *Driver {
	return &Driver{opts: opts}
}

// Acquire launches a browser
func (d *Driver) Acquire(ctx context.Context) (scenario.Session, error) {
	s, err := Launch(ctx, d.opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Session owns one browser process and its CDP connection
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser

	once       sync.Once
	releaseErr error
}

var _ scenario.Session = (*Session)(nil)

// Launch starts a browser and connects to it. Starting is bounded by ctx and
// opts.LaunchTimeout. Failures are LaunchError.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if err := ctx.Err(); err != nil {
		return nil, failure.New(failure.LaunchError, "", err)
	}

	bin := opts.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}

	launchCtx, cancel := context.WithTimeout(ctx, opts.LaunchTimeout)
	defer cancel()

	l := launcher.New().Context(launchCtx).Headless(opts.Headless)
	if bin != "" {
		l = l.Bin(bin)
	}

	u, err := l.Launch()
	if err != nil {
		if l.PID() != 0 {
			l.Kill()
		}
		return nil, failure.New(failure.LaunchError, "", fmt.Errorf("launch browser: %w", err))
	}

	// The connection lives until Release, so it must survive ctx being
	// cancelled for teardown to still close the browser.
	b := rod.New().Context(context.WithoutCancel(ctx)).ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, failure.New(failure.LaunchError, "", fmt.Errorf("connect to browser: %w", err))
	}

	return &Session{opts: opts, launcher: l, browser: b}, nil
}

// Release closes the browser and removes its profile. Only the first call
// does anything; later calls return its result. Safe on a nil Session.
func (s *Session) Release() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				s.releaseErr = fmt.Errorf("close browser: %w", err)
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
	})
	return s.releaseErr
}

// Open creates a page, navigates it to url and waits for the page to settle.
// Readiness of the application itself is not implied.
func (s *Session) Open(ctx context.Context, url string) (scenario.Page, error) {
	p, err := s.open(ctx, url)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Session) open(ctx context.Context, url string) (*Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, failure.New(failure.NavigationError, "", fmt.Errorf("create page: %w", err))
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.opts.Width,
		Height:            s.opts.Height,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, failure.New(failure.NavigationError, "", fmt.Errorf("set viewport: %w", err))
	}

	nav := executor.Navigate("Opening "+url, url)
	nav.Timeout = s.opts.ConnectTimeout
	if err := executor.Run(ctx, page, nav); err != nil {
		return nil, err
	}

	// Don't hang on persistent connections (websockets, polling)
	page.Context(ctx).Timeout(s.opts.SettleTimeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	return &Page{page: page}, nil
}
