package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Stream/internal/config"
	"github.com/dkeye/Stream/internal/domain"
)

var statusTable = []struct {
	err    error
	status int
}{
	{domain.ErrMissingPeerID, http.StatusBadRequest},
	{domain.ErrPeerIDTooLong, http.StatusBadRequest},
	{domain.ErrMissingCommand, http.StatusBadRequest},
	{domain.ErrResetFailed, http.StatusBadRequest},
	{domain.ErrInvalidSDP, http.StatusBadRequest},
	{domain.ErrAnswerFailed, http.StatusBadRequest},
	{config.ErrUnknownKey, http.StatusBadRequest},
	{domain.ErrUnknownPeer, http.StatusNotFound},
	{domain.ErrUnknownCommand, http.StatusNotFound},
}

func statusFor(err error) int {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// offerReason is the plain-text body of a failed offer: the sentinel without engine detail.
func offerReason(err error) string {
	for _, e := range []error{domain.ErrResetFailed, domain.ErrInvalidSDP, domain.ErrAnswerFailed, domain.ErrMissingPeerID, domain.ErrPeerIDTooLong} {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return err.Error()
}
