package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/v0xg/roleverify/internal/browser"
	"github.com/v0xg/roleverify/internal/executor"
	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/scenario"
)

// EnvPrefix prefixes every environment variable read by FromEnv
const EnvPrefix = "ROLEVERIFY_"

// Config holds everything the CLI can tune. Defaults reproduce the fixed
// scenario exactly.
type Config struct {
	URL       string
	Output    string
	Browser   string
	Headed    bool
	Width     int
	Height    int
	MaxWidth  uint
	Highlight bool
	Verbose   bool
	LogLevel  string

	LaunchTimeout    time.Duration
	ReadinessTimeout time.Duration
	ActionTimeout    time.Duration
	AssertTimeout    time.Duration
}

// Default returns the fixed scenario's configuration
func Default() Config {
	b := browser.DefaultOptions()
	return Config{
		URL:              scenario.DefaultURL,
		Output:           scenario.DefaultOutput,
		Width:            b.Width,
		Height:           b.Height,
		LogLevel:         "INFO",
		LaunchTimeout:    b.LaunchTimeout,
		ReadinessTimeout: scenario.DefaultReadinessTimeout,
		ActionTimeout:    executor.DefaultTimeout,
		AssertTimeout:    expect.DefaultTimeout,
	}
}

// FromEnv applies ROLEVERIFY_* variables on top of Default. lookup is
// usually os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("URL"); ok {
		c.URL = v
	}
	if v, ok := get("OUTPUT"); ok {
		c.Output = v
	}
	if v, ok := get("BROWSER"); ok {
		c.Browser = v
	}
	if v, ok := get("LOG"); ok {
		c.LogLevel = strings.ToUpper(v)
	}

	bools := map[string]*bool{"HEADED": &c.Headed, "HIGHLIGHT": &c.Highlight, "VERBOSE": &c.Verbose}
	for name, dst := range bools {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return c, fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{"WIDTH": &c.Width, "HEIGHT": &c.Height}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c, fmt.Errorf("%s%s: want a positive integer, got %q", EnvPrefix, name, v)
			}
			*dst = n
		}
	}
	if v, ok := get("MAX_WIDTH"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c, fmt.Errorf("%sMAX_WIDTH: %w", EnvPrefix, err)
		}
		c.MaxWidth = uint(n)
	}

	durations := map[string]*time.Duration{
		"LAUNCH_TIMEOUT":    &c.LaunchTimeout,
		"READINESS_TIMEOUT": &c.ReadinessTimeout,
		"ACTION_TIMEOUT":    &c.ActionTimeout,
		"ASSERT_TIMEOUT":    &c.AssertTimeout,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return c, fmt.Errorf("%s%s: want a positive duration, got %q", EnvPrefix, name, v)
			}
			*dst = d
		}
	}

	return c, nil
}

// ScenarioOptions converts c for scenario.New
func (c Config) ScenarioOptions() scenario.Options {
	return scenario.Options{
		URL:              c.URL,
		Output:           c.Output,
		ReadinessTimeout: c.ReadinessTimeout,
		ActionTimeout:    c.ActionTimeout,
		AssertTimeout:    c.AssertTimeout,
		MaxWidth:         c.MaxWidth,
		Highlight:        c.Highlight,
	}
}

// BrowserOptions converts c for browser.NewDriver
func (c Config) BrowserOptions() browser.Options {
	o := browser.DefaultOptions()
	o.Bin = c.Browser
	o.Headless = !c.Headed
	o.Width = c.Width
	o.Height = c.Height
	o.LaunchTimeout = c.LaunchTimeout
	return o
}
