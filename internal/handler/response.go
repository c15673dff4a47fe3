package handler

// RESPONSE HELPERS:
// Every response body is JSON. Failures share one envelope:
//
//	{"message": "Blog not found", "error": "not_found"}
//
// message is what clients have always displayed; error is a stable machine
// code. Successful responses carry their own shapes (see account.go, post.go).

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/blog-api/internal/apperror"
)

// Envelope is the failure body, and the body of responses that only carry
// a message (DELETE /blogs/{id}).
type Envelope struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// errorMessages are the client-facing messages of one route. An empty field
// falls back to the AppError's own message.
type errorMessages struct {
	NotFound string
	Conflict string
	Internal string
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that's left is to log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its status code and envelope.
//
// ERROR MAPPING:
//
//	body over the size cap → 413 too_large
//	ErrValidation          → 400 validation_error
//	ErrConflict            → 400 conflict            (signup has always answered 400)
//	ErrInvalidCredentials  → 400 invalid_credentials
//	ErrNotFound            → 404 not_found
//	anything else          → 500 internal_error
//
// A 500 never exposes the underlying error text: it can hold driver
// messages, file paths or query fragments.
func writeError(w http.ResponseWriter, err error, msgs errorMessages) {
	var appErr *apperror.AppError
	message := msgs.Internal
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch {
	case isTooLarge(err):
		writeJSON(w, http.StatusRequestEntityTooLarge, Envelope{Message: "Request body too large", Error: "too_large"})
	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusBadRequest, Envelope{Message: message, Error: "validation_error"})
	case errors.Is(err, apperror.ErrConflict):
		writeJSON(w, http.StatusBadRequest, Envelope{Message: orDefault(msgs.Conflict, message), Error: "conflict"})
	case errors.Is(err, apperror.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, Envelope{Message: message, Error: "invalid_credentials"})
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Envelope{Message: orDefault(msgs.NotFound, message), Error: "not_found"})
	default:
		writeJSON(w, http.StatusInternalServerError, Envelope{
			Message: orDefault(msgs.Internal, "An internal error occurred"),
			Error:   "internal_error",
		})
	}
}

// formBody is a request type that can also be filled from an
// application/x-www-form-urlencoded body. Older clients post HTML forms to
// the JSON routes, so both encodings are accepted.
type formBody interface {
	fromForm(form url.Values)
}

// decodeBody fills dst from the request body: form fields when the
// Content-Type says so, JSON otherwise. The error is ready for writeError,
// which answers 413 for an oversized body and 400 for anything malformed.
func decodeBody(r *http.Request, dst formBody) error {
	if isFormEncoded(r) {
		if err := r.ParseForm(); err != nil {
			if isTooLarge(err) {
				return fmt.Errorf("reading form body: %w", err)
			}
			return apperror.ValidationFailed("body", "Invalid form body")
		}
		dst.fromForm(r.PostForm)
		return nil
	}
	return decodeJSON(r, dst)
}

// decodeJSON reads a JSON body into dst. A malformed body becomes a
// validation error so writeError answers 400.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if isTooLarge(err) {
			return fmt.Errorf("reading JSON body: %w", err)
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

func isFormEncoded(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// isTooLarge reports whether err came from the body-size cap. The multipart
// reader does not always wrap its read errors, hence the text fallback.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// formValue returns a pointer to the field's value, or nil when the form
// does not carry the field at all.
func formValue(form url.Values, key string) *string {
	if !form.Has(key) {
		return nil
	}
	v := form.Get(key)
	return &v
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
