package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for geokeeper operations.
// None of these are retried: every failure is deterministic for its input.
var (
	// ErrInvalidCRS indicates a CRS identifier the engine cannot resolve.
	ErrInvalidCRS = errors.New("invalid CRS")

	// ErrNoPathAvailable indicates an empty catalog for a CRS pair.
	ErrNoPathAvailable = errors.New("no transformation path available")

	// ErrPathNotFound indicates a path_id or preferred_ops hint that no catalog entry satisfies.
	ErrPathNotFound = errors.New("transformation path not found")

	// ErrMalformedDescriptor indicates legacy CRS descriptor text that failed to parse.
	ErrMalformedDescriptor = errors.New("malformed CRS descriptor")

	// ErrTooFewWaypoints indicates a composed transform with fewer than two CRSs.
	ErrTooFewWaypoints = errors.New("at least two waypoints required")

	// ErrHintLengthMismatch indicates per-leg hints not aligned with the legs.
	ErrHintLengthMismatch = errors.New("per-leg hints must have one entry per leg")

	// ErrTooManyWaypoints indicates a chain longer than the configured limit.
	ErrTooManyWaypoints = errors.New("too many waypoints")

	// ErrTooManyPoints indicates a batch larger than the configured limit.
	ErrTooManyPoints = errors.New("too many points in batch")

	// ErrNotProjected indicates a projection-only query against a non-projected CRS.
	ErrNotProjected = errors.New("CRS is not projected")

	// ErrOutOfDomain indicates a position where a computation is undefined,
	// such as projection factors at a pole.
	ErrOutOfDomain = errors.New("position outside the valid domain")
)

// PathNotFoundError echoes the hint that could not be satisfied.
type PathNotFoundError struct {
	PathID       *int
	PreferredOps []string
	CatalogSize  int
}

func (e *PathNotFoundError) Error() string {
	if e.PathID != nil {
		return fmt.Sprintf("%s: path_id %d outside catalog of %d entries", ErrPathNotFound, *e.PathID, e.CatalogSize)
	}
	return fmt.Sprintf("%s: no path with operations matching [%s]", ErrPathNotFound, strings.Join(e.PreferredOps, ", "))
}

func (e *PathNotFoundError) Unwrap() error { return ErrPathNotFound }

// LegError annotates a composition failure with the hop that caused it.
type LegError struct {
	Index int
	From  string
	To    string
	Err   error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("leg %d (%s -> %s): %v", e.Index, e.From, e.To, e.Err)
}

func (e *LegError) Unwrap() error { return e.Err }

// DescriptorError names the descriptor group that failed to parse.
type DescriptorError struct {
	Group string
	Err   error
}

func (e *DescriptorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: group %s", ErrMalformedDescriptor, e.Group)
	}
	return fmt.Sprintf("%s: group %s: %v", ErrMalformedDescriptor, e.Group, e.Err)
}

func (e *DescriptorError) Is(target error) bool { return target == ErrMalformedDescriptor }

func (e *DescriptorError) Unwrap() error { return e.Err }

// InvalidCRSError carries the identifier that failed to resolve.
type InvalidCRSError struct {
	ID     string
	Reason string
}

func (e *InvalidCRSError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %q", ErrInvalidCRS, e.ID)
	}
	return fmt.Sprintf("%s: %q: %s", ErrInvalidCRS, e.ID, e.Reason)
}

func (e *InvalidCRSError) Unwrap() error { return ErrInvalidCRS }
