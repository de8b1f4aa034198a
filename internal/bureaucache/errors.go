package bureaucache

import (
	"context"
	"errors"
	"fmt"

	"creditlens/internal/bureau"
	"creditlens/pkg/platform/sentinel"
)

// ErrSuperseded is returned by a fetch whose report context was reset while
// the call was in flight. Its result has been discarded.
var ErrSuperseded = errors.New("bureau fetch superseded by report reset")

// Kind classifies a failed fetch.
type Kind string

const (
	// KindTransport covers timeouts, cancellation and unreachable backends.
	KindTransport Kind = "transport"
	// KindPersistence covers store failures other than a missing row.
	KindPersistence Kind = "persistence"
	// KindNotFound means the report row does not exist.
	KindNotFound Kind = "not_found"
)

// FetchError reports a recoverable fetch failure. The cache entry is left
// without data and is not retried for the current report context.
type FetchError struct {
	Bureau   bureau.Code
	ReportID string
	Kind     Kind
	Err      error
}

func (e *FetchError) Error() string {
	target := "all bureaus"
	if e.Bureau != "" {
		target = e.Bureau.String()
	}
	return fmt.Sprintf("fetch %s for report %s (%s): %v", target, e.ReportID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a FetchError and returns it.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return KindNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, sentinel.ErrUnavailable):
		return KindTransport
	default:
		return KindPersistence
	}
}
