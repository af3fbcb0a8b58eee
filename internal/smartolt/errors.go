package smartolt

import (
	"errors"
	"net/http"
	"strings"

	"onu-map/internal/domain"

	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	ErrEmptyBaseURL   = errors.New("smartolt: base url is empty")
	ErrEmptyToken     = errors.New("smartolt: access token is empty")
	ErrEmptyID        = errors.New("smartolt: device id is empty")
	ErrUnexpectedBody = errors.New("smartolt: response is not a JSON envelope")
)

var credentialMarkers = []string{
	"token",
	"api key",
	"apikey",
	"unauthorized",
	"forbidden",
	"credential",
}

// isCredentialMessage reports whether an upstream failure message points at
// the access token rather than the request
func isCredentialMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range credentialMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// applicationError classifies a failure reported by the upstream itself
func applicationError(op string, statusCode int, msg string) *domain.Error {
	if msg == "" && statusCode >= http.StatusBadRequest {
		msg = http.StatusText(statusCode)
	}
	if msg == "" {
		msg = "upstream reported failure"
	}

	kind := domain.KindUpstreamApplication
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden || isCredentialMessage(msg) {
		kind = domain.KindUpstreamCredentials
	}
	return domain.NewError(kind, op, msg, nil)
}

func transportError(op string, err error) *domain.Error {
	return domain.NewError(domain.KindUpstreamTransport, op, "", err)
}

// breakerError maps rejections of an open breaker to upstream_unavailable
func breakerError(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.NewError(domain.KindUpstreamUnavailable, op, "upstream temporarily unavailable", err)
	}
	return err
}
