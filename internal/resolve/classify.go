package resolve

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"talentrank/internal/errors"

	"google.golang.org/api/googleapi"
)

// classifyRemoteError maps a raw remote-tier failure onto the error
// taxonomy so outage patterns (auth vs quota vs transport) are
// distinguishable in logs and metrics. Every class still triggers the same
// rule-based fallback.
func classifyRemoteError(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewRemoteError(errors.ErrCodeRemoteTimeout,
			"Remote resolution exceeded its deadline", err)
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewRemoteError(errors.ErrCodeRemoteTimeout,
			"Remote resolution timed out on network I/O", err)
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.NewRemoteError(errors.ErrCodeRemoteAuth,
				"Remote tier rejected credentials", err)
		case http.StatusTooManyRequests:
			return errors.NewRemoteError(errors.ErrCodeRemoteQuota,
				"Remote tier quota exhausted", err)
		}
	}

	return errors.NewRemoteError(errors.ErrCodeRemoteError,
		"Remote resolution failed", err)
}
