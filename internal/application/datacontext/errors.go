package datacontext

import "errors"

var (
	// ErrSessionClosed is returned by operations issued after the session left StateOpen.
	ErrSessionClosed = errors.New("datacontext: session is not open")

	// ErrTenantMismatch is returned when a scoped session is asked to update an
	// entity that belongs to another tenant.
	ErrTenantMismatch = errors.New("datacontext: entity belongs to another tenant")

	// ErrNilEntity is returned when a write is given a nil entity. Nothing from
	// the batch is staged.
	ErrNilEntity = errors.New("datacontext: nil entity")

	// ErrInvalidMapping is returned by NewRepository for an unusable Mapping.
	ErrInvalidMapping = errors.New("datacontext: invalid mapping")
)
