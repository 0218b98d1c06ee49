package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"stackforge/internal/types"
)

// NotFoundError reports that no repository entry satisfies a partial spec.
type NotFoundError struct {
	Spec types.PartialSpec
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no package description matches %s", e.Spec.String())
}

func (e *NotFoundError) Unwrap() error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(e.Error())
}

// AmbiguousSpecError reports several equally ranked candidates.
type AmbiguousSpecError struct {
	Spec       types.PartialSpec
	Candidates []string
}

func (e *AmbiguousSpecError) Error() string {
	return fmt.Sprintf("%s is ambiguous: %s", e.Spec.String(), strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousSpecError) Unwrap() error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(e.Error())
}

// UnresolvableDependencyError reports a declared dependency that cannot be
// satisfied. Chain lists the requesting ancestors, root first, ending with
// the requesting node.
type UnresolvableDependencyError struct {
	Requester string
	Missing   types.PartialSpec
	Chain     []string
	Reason    string
	Cause     error
}

func (e *UnresolvableDependencyError) Error() string {
	msg := fmt.Sprintf("%s requires %s", e.Requester, e.Missing.String())
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Chain) > 1 {
		msg += " (via " + strings.Join(e.Chain, " -> ") + ")"
	}
	return msg
}

func (e *UnresolvableDependencyError) Unwrap() error {
	b := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(e.Error())
	if e.Cause != nil {
		b = b.WithCause(e.Cause)
	}
	return b
}

// CyclicDependencyError reports a dependency cycle. Cycle starts and ends
// with the same module. Internal is set when the scheduler, rather than the
// graph builder, found the cycle.
type CyclicDependencyError struct {
	Cycle    []string
	Internal bool
}

func (e *CyclicDependencyError) Error() string {
	prefix := "dependency cycle"
	if e.Internal {
		prefix = "internal error: dependency cycle left in graph"
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(e.Cycle, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error {
	code := errbuilder.CodeFailedPrecondition
	if e.Internal {
		code = errbuilder.CodeInternal
	}
	return errbuilder.New().
		WithCode(code).
		WithMsg(e.Error())
}

// BuildFailure reports a node whose build procedure failed.
type BuildFailure struct {
	Module string
	Cause  error
}

func (e *BuildFailure) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("build of %s failed", e.Module)
	}
	return fmt.Sprintf("build of %s failed: %v", e.Module, e.Cause)
}

func (e *BuildFailure) Unwrap() error {
	b := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(e.Error())
	if e.Cause != nil {
		b = b.WithCause(e.Cause)
	}
	return b
}
