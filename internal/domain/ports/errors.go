package ports

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrNoRecords is returned by an index build when the data source yielded
// zero records. The index is left unchanged.
var ErrNoRecords = errors.New("no records to index")

// ErrMalformedResponse marks a generation response body that could not be
// decoded. Transient: the gateway retries it.
var ErrMalformedResponse = errors.New("malformed generation response")

// BackendStatusError is an explicit error status reported by the generation
// backend. Not transient: the gateway surfaces it without retry.
type BackendStatusError struct {
	Status int
	Body   string
}

func (e *BackendStatusError) Error() string {
	return fmt.Sprintf("generation backend returned status %d: %s", e.Status, e.Body)
}

// IsTimeout reports whether err represents a generation timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
