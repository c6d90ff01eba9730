package noteapi

import (
	"errors"
	"net"

	"github.com/imroc/req/v3"
	"github.com/openmined/notesync/internal/notecore"
)

// wrapError turns a req/v3 response plus transport error into a single
// error that notecore.Classify can map to an ErrorKind: a non-2xx
// response becomes a *notecore.StatusError carrying the observed status,
// a transport error that is a net.Error is returned as-is so Classify's
// net.Error branch still fires, and any other transport error is wrapped
// in a *notecore.StatusError with no status code.
func wrapError(res *req.Response, err error, action string) error {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) {
			return err
		}
		return &notecore.StatusError{Err: err}
	}
	if res == nil {
		return nil
	}
	if !res.IsError() {
		return nil
	}

	var cause error
	if apiErr, ok := res.Error().(*apiError); ok && apiErr != nil {
		cause = apiErr
	} else {
		cause = &apiError{Code: res.StatusCode, Message: action + " failed"}
	}
	return &notecore.StatusError{StatusCode: res.StatusCode, Err: cause}
}
