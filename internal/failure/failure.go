package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind classifies why the scenario stopped
type Kind int

const (
	Unknown Kind = iota
	LaunchError
	NavigationError
	ReadinessTimeout
	ElementNotFound
	Timeout
	PreconditionFailed
	AssertionTimeout
	CaptureError
)

var kindNames = map[Kind]string{
	Unknown:            "Unknown",
	LaunchError:        "LaunchError",
	NavigationError:    "NavigationError",
	ReadinessTimeout:   "ReadinessTimeout",
	ElementNotFound:    "ElementNotFound",
	Timeout:            "Timeout",
	PreconditionFailed: "PreconditionFailed",
	AssertionTimeout:   "AssertionTimeout",
	CaptureError:       "CaptureError",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified scenario failure. Step and Locator are filled in by
// whichever layer knows them; Err is the underlying cause.
type Error struct {
	Kind    Kind
	Step    string
	Locator string
	Elapsed time.Duration
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Step != "" {
		fmt.Fprintf(&b, " at step %q", e.Step)
	}
	if e.Locator != "" {
		fmt.Fprintf(&b, " (locator %s)", e.Locator)
	}
	if e.Elapsed > 0 {
		fmt.Fprintf(&b, " after %s", e.Elapsed.Round(time.Millisecond))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, so errors.Is(err, &Error{Kind: Timeout})
// works without comparing the cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Step == "" && t.Err == nil
}

// New creates a classified error wrapping err
func New(kind Kind, locator string, err error) *Error {
	return &Error{Kind: kind, Locator: locator, Err: err}
}

// Newf creates a classified error from a formatted message
func Newf(kind Kind, locator string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Locator: locator, Err: fmt.Errorf(format, args...)}
}

// As returns the *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return Unknown
}

// WithStep stamps the step name onto err. Unclassified errors are wrapped as
// Unknown so the step is never lost.
func WithStep(err error, step string) error {
	if err == nil {
		return nil
	}
	if fe, ok := As(err); ok {
		if fe.Step == "" {
			fe.Step = step
		}
		return err
	}
	return &Error{Kind: Unknown, Step: step, Err: err}
}

// Reclassify changes the kind of err when it currently has kind from
func Reclassify(err error, from, to Kind) error {
	if fe, ok := As(err); ok && fe.Kind == from {
		fe.Kind = to
	}
	return err
}
