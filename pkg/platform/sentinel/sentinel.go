package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Record stores, vendor caches and
// the bureau cache return these (optionally wrapped) so services can translate
// them into domain errors.
//
// - ErrNotFound: report row or cached response does not exist
// - ErrUnavailable: store or vendor temporarily unreachable
// - ErrInvalidState: entity in wrong state for requested operation
var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
