package store

import (
	"errors"
	"fmt"
)

// ErrSyncInFlight is returned when Sync is called while another sync is
// already running. The second call performs no network work.
var ErrSyncInFlight = errors.New("sync already in flight")

// ValidationError rejects an action before any remote call is attempted:
// missing justification on close, missing referenced truck or driver on
// create, illegal status transition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a local validation rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
