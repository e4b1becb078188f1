package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/requestcontext"
)

// Request bodies may implement any of these hooks. DecodeAndPrepare calls
// them in the order Sanitize, Normalize, Validate.
type (
	Sanitizable  interface{ Sanitize() }
	Normalizable interface{ Normalize() }
	Validatable  interface{ Validate() error }
)

// DecodeJSON reads a JSON body into a new T. On failure the 400 response has
// already been written and ok is false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req := new(T)
	err := json.NewDecoder(r.Body).Decode(req)
	if err == nil {
		return req, true
	}

	msg := "invalid request body"
	if errors.Is(err, io.EOF) {
		msg = "request body is required"
	}
	rejectRequest(w, r, logger, "undecodable request body", err, dErrors.New(dErrors.CodeBadRequest, msg))
	return nil, false
}

// PrepareRequest runs whichever request hooks req implements.
func PrepareRequest(req any) error {
	if v, ok := req.(Sanitizable); ok {
		v.Sanitize()
	}
	if v, ok := req.(Normalizable); ok {
		v.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare is DecodeJSON followed by PrepareRequest. A hook error
// without a domain code is reported as a validation failure.
//
//	req, ok := httputil.DecodeAndPrepare[SubmitKYCRequest](w, r, h.logger)
//	if !ok {
//		return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger)
	if !ok {
		return nil, false
	}
	err := PrepareRequest(req)
	if err == nil {
		return req, true
	}

	reply := err
	if _, coded := dErrors.CodeOf(err); !coded {
		reply = dErrors.New(dErrors.CodeValidation, err.Error())
	}
	rejectRequest(w, r, logger, "request failed validation", err, reply)
	return nil, false
}

func rejectRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, cause, reply error) {
	ctx := r.Context()
	logger.WarnContext(ctx, msg,
		"error", cause,
		"request_id", requestcontext.RequestID(ctx),
	)
	WriteError(w, reply)
}
