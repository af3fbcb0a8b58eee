package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"onu-map/internal/domain"

	"github.com/goccy/go-json"
)

// Response is the envelope of every JSON answer
type Response struct {
	Status    string    `json:"status"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the error body of a failed request
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindQuotaExceeded:       http.StatusTooManyRequests,
	domain.KindUpstreamCredentials: http.StatusBadGateway,
	domain.KindUpstreamApplication: http.StatusBadGateway,
	domain.KindUpstreamTransport:   http.StatusGatewayTimeout,
	domain.KindUpstreamUnavailable: http.StatusServiceUnavailable,
	domain.KindNotFound:            http.StatusNotFound,
	domain.KindInvalidArgument:     http.StatusBadRequest,
}

// StatusFor returns the HTTP status an error kind is answered with
func StatusFor(kind domain.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	h.write(w, status, &Response{Status: "success", Data: data, Timestamp: time.Now().UTC()})
}

// respondError translates err into its status and error body
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	apiErr := &APIError{Code: string(kind), Message: err.Error()}
	var typed *domain.Error
	if errors.As(err, &typed) && typed.Message != "" {
		apiErr.Message = typed.Message
	}

	if kind == domain.KindQuotaExceeded {
		wait := domain.WaitMinutesOf(err)
		w.Header().Set("Retry-After", strconv.Itoa(wait*60))
		apiErr.Details = map[string]any{"wait_minutes": wait}
	}

	log := h.logger.WithError(err).WithFields(map[string]any{
		"path": r.URL.Path,
		"kind": kind,
	})
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	h.write(w, status, &Response{Status: "error", Error: apiErr, Timestamp: time.Now().UTC()})
}

func (h *Handler) write(w http.ResponseWriter, status int, response *Response) {
	data, err := json.Marshal(response)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.WithError(err).Debug("Failed to write JSON response")
	}
}
