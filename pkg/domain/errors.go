package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateChannel is returned when a channel would connect an already-connected pair
	// (or a vertex to itself).
	ErrDuplicateChannel = errors.New("duplicate channel")

	// ErrUnknownChannel is returned when a process names a channel it does not own.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrSandboxLoad is returned when an algorithm script cannot be evaluated.
	ErrSandboxLoad = errors.New("sandbox load failed")

	// ErrImportParse is returned when a graph export payload is malformed.
	ErrImportParse = errors.New("malformed graph import")

	// ErrVertexNotFound is returned when a vertex id is not part of the topology.
	ErrVertexNotFound = errors.New("vertex not found")

	// ErrProcessPayload is returned when a message payload carries a process or code that
	// would let the receiver reach into the sender.
	ErrProcessPayload = errors.New("message payload cannot carry a process")

	// ErrNoParent is returned when a process sends to its parent before declaring one.
	ErrNoParent = errors.New("process has no parent channel")

	// ErrTopologyNotFound is returned when a named topology cannot be found in a store.
	ErrTopologyNotFound = errors.New("topology not found")

	// ErrSessionNotFound is returned when a session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSampleNotFound is returned when a sample algorithm name is unknown.
	ErrSampleNotFound = errors.New("sample not found")
)

// DuplicateChannelError reports a rejected AddChannel.
type DuplicateChannelError struct {
	From VertexID
	To   VertexID
}

func (e *DuplicateChannelError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("duplicate channel: %s cannot connect to itself", e.From.Label())
	}
	return fmt.Sprintf("duplicate channel: %s and %s are already connected", e.From.Label(), e.To.Label())
}

func (e *DuplicateChannelError) Is(target error) bool { return target == ErrDuplicateChannel }

// UnknownChannelError reports a send (or parent declaration) on a channel the process does not own.
type UnknownChannelError struct {
	Process string
	Channel string
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("unknown channel: %s has no channel %q", e.Process, e.Channel)
}

func (e *UnknownChannelError) Is(target error) bool { return target == ErrUnknownChannel }

// SandboxLoadError wraps a failure to evaluate an algorithm script.
type SandboxLoadError struct {
	Name  string
	Cause error
}

func (e *SandboxLoadError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("sandbox load failed: %v", e.Cause)
	}
	return fmt.Sprintf("sandbox load failed (%s): %v", e.Name, e.Cause)
}

func (e *SandboxLoadError) Unwrap() error        { return e.Cause }
func (e *SandboxLoadError) Is(target error) bool { return target == ErrSandboxLoad }

// ImportParseError reports why a graph export could not be applied.
type ImportParseError struct {
	Reason string
	Cause  error
}

func (e *ImportParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed graph import: %s: %v", e.Reason, e.Cause)
	}
	return "malformed graph import: " + e.Reason
}

func (e *ImportParseError) Unwrap() error        { return e.Cause }
func (e *ImportParseError) Is(target error) bool { return target == ErrImportParse }

// HookError wraps a failure raised by user code while a process ran one of its hooks.
type HookError struct {
	VertexID VertexID
	Hook     string
	Cause    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s: %s hook failed: %v", e.VertexID.Label(), e.Hook, e.Cause)
}

func (e *HookError) Unwrap() error { return e.Cause }
