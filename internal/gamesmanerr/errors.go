// This file is part of GamesmanExperiment. See internal/value/value.go for
// license text.

// Package gamesmanerr defines the error kinds the core solver surfaces, per
// the tier solver's error handling design: adapter contract violations,
// resource exhaustion, database I/O failures, self-test failures (with
// sub-codes), and cooperative cancellation.
package gamesmanerr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/GamesCrafters/GamesmanExperiment/internal/tier"
)

// Kind classifies an error surfaced by the core.
type Kind int

const (
	// AdapterContract: an optional primitive returned an impossible
	// result. Fatal for the tier.
	AdapterContract Kind = iota
	// ResourceExhausted: allocation failure, propagated to the manager.
	ResourceExhausted
	// DatabaseIO: probe or flush failed. The tier is marked corrupted.
	DatabaseIO
	// TestFailure: a self-test invariant did not hold. Non-fatal.
	TestFailure
	// Cancelled: the coordinator asked the worker to stop.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case AdapterContract:
		return "adapter-contract"
	case ResourceExhausted:
		return "resource-exhausted"
	case DatabaseIO:
		return "database-io"
	case TestFailure:
		return "test-failure"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TestSubCode enumerates the specific invariants the self-test harness
// checks, per spec.md §4.6 and §8.
type TestSubCode int

const (
	TestNoError TestSubCode = iota
	TestDependencyError
	TestGetTierNameError
	TestIllegalChildTierError
	TestIllegalChildPositionError
	TestCanonicalChildMismatch
	TestCanonicalChildCountMismatch
	TestTierSymmetrySelfMappingError
	TestTierSymmetryInconsistentError
	TestChildParentMismatchError
	TestParentChildMismatchError
	TestCompareMismatchError
)

func (c TestSubCode) String() string {
	switch c {
	case TestNoError:
		return "no-error"
	case TestDependencyError:
		return "dependency-error"
	case TestGetTierNameError:
		return "get-tier-name-error"
	case TestIllegalChildTierError:
		return "illegal-child-tier"
	case TestIllegalChildPositionError:
		return "illegal-child-position"
	case TestCanonicalChildMismatch:
		return "canonical-child-mismatch"
	case TestCanonicalChildCountMismatch:
		return "canonical-child-count-mismatch"
	case TestTierSymmetrySelfMappingError:
		return "tier-symmetry-self-mapping"
	case TestTierSymmetryInconsistentError:
		return "tier-symmetry-inconsistent"
	case TestChildParentMismatchError:
		return "child-parent-mismatch"
	case TestParentChildMismatchError:
		return "parent-child-mismatch"
	case TestCompareMismatchError:
		return "compare-mismatch"
	default:
		return "unknown"
	}
}

// Error is the core's structured error type: a Kind, the tier it occurred
// on (tier.Illegal if not applicable), an optional TestSubCode, and the
// wrapped cause.
type Error struct {
	Kind    Kind
	Tier    tier.Tier
	SubCode TestSubCode
	cause   error
}

func (e *Error) Error() string {
	if e.Tier == tier.Illegal {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	if e.Kind == TestFailure {
		return fmt.Sprintf("%s (tier %d, %s): %v", e.Kind, e.Tier, e.SubCode, e.cause)
	}
	return fmt.Sprintf("%s (tier %d): %v", e.Kind, e.Tier, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause with the given kind, attaching t for context.
func New(kind Kind, t tier.Tier, cause error) *Error {
	return &Error{Kind: kind, Tier: t, SubCode: TestNoError, cause: cause}
}

// Newf builds a new Error from a format string, matching the teacher's own
// convention of wrapping with github.com/pkg/errors so the call stack is
// preserved.
func Newf(kind Kind, t tier.Tier, format string, args ...any) *Error {
	return New(kind, t, errors.Errorf(format, args...))
}

// NewTestFailure builds a TestFailure error with a sub-code, used by
// internal/testharness.
func NewTestFailure(t tier.Tier, p tier.Position, sub TestSubCode) *Error {
	return &Error{
		Kind:    TestFailure,
		Tier:    t,
		SubCode: sub,
		cause:   errors.Errorf("position %d failed %s check", p, sub),
	}
}

// Wrap attaches kind/tier context to an existing error without discarding
// it, mirroring github.com/pkg/errors.Wrap.
func Wrap(kind Kind, t tier.Tier, cause error, message string) *Error {
	return New(kind, t, errors.Wrap(cause, message))
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsFatal reports whether err should abort the surrounding run rather than
// just marking a single tier corrupted, per spec.md §7's propagation
// policy: AdapterContract and ResourceExhausted are always fatal;
// DatabaseIO and TestFailure are not.
func IsFatal(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return err != nil
	}
	return kind == AdapterContract || kind == ResourceExhausted
}
