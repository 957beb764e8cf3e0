package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/v0xg/roleverify/internal/expect"
	"github.com/v0xg/roleverify/internal/locator"
)

// ActionKind is what a Step does to its target
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionClick    ActionKind = "click"
	ActionFill     ActionKind = "fill"
)

// Step represents a single user-like interaction
type Step struct {
	Name    string             // Reported in progress output and failures
	Kind    ActionKind         // navigate, click, fill
	Target  locator.Descriptor // Element to act on (click, fill)
	Text    string             // Text to fill
	URL     string             // URL for navigate
	Require expect.Condition   // Optional precondition checked before acting
	Timeout time.Duration      // Budget for resolving and acting (default DefaultTimeout)
}

// Click builds a click step
func Click(name string, target locator.Descriptor) Step {
	return Step{Name: name, Kind: ActionClick, Target: target}
}

// Fill builds a fill step
func Fill(name string, target locator.Descriptor, text string) Step {
	return Step{Name: name, Kind: ActionFill, Target: target, Text: text}
}

// Navigate builds a navigate step
func Navigate(name, url string) Step {
	return Step{Name: name, Kind: ActionNavigate, URL: url}
}

// Requiring returns a copy of s with a precondition
func (s Step) Requiring(c expect.Condition) Step {
	s.Require = c
	return s
}

// Validate reports steps that cannot run
func (s Step) Validate() error {
	switch s.Kind {
	case ActionNavigate:
		if s.URL == "" {
			return errors.New("navigate step needs a url")
		}
		return nil
	case ActionClick, ActionFill:
		return s.Target.Validate()
	}
	return fmt.Errorf("unknown action type: %s", s.Kind)
}

func (s Step) String() string {
	switch s.Kind {
	case ActionFill:
		return fmt.Sprintf("%s → %s (text: %q)", s.Kind, s.Target, s.Text)
	case ActionNavigate:
		return fmt.Sprintf("%s → %s", s.Kind, s.URL)
	default:
		return fmt.Sprintf("%s → %s", s.Kind, s.Target)
	}
}

func (s Step) timeout() time.Duration {
	if s.Timeout <= 0 {
		return DefaultTimeout
	}
	return s.Timeout
}

// precondition is the check fill runs before acting. It shares the step's
// timeout.
func (s Step) precondition() expect.Assertion {
	return expect.Assertion{Target: s.Target, Condition: s.Require, Timeout: s.timeout()}
}
