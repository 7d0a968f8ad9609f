package api

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"codeatlas/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error          string             `json:"error"`
	Code           string             `json:"code"`
	Details        interface{}        `json:"details,omitempty"`
	SuggestedFixes []errors.FixAction `json:"suggestedFixes,omitempty"`
	Drilldowns     []errors.Drilldown `json:"drilldowns,omitempty"`
	RequestID      string             `json:"requestId,omitempty"`
}

// WriteError writes err with the status its code maps to.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)
	resp := ErrorResponse{
		Error:     err.Error(),
		Code:      string(code),
		RequestID: GetRequestID(r.Context()),
	}
	var ae *errors.AtlasError
	if stderrors.As(err, &ae) {
		resp.Error = ae.Message
		resp.Details = ae.Details
		resp.SuggestedFixes = ae.SuggestedFixes
		resp.Drilldowns = ae.Drilldowns
	}
	WriteJSON(w, resp, StatusForCode(code))
}

// StatusForCode maps engine error codes to HTTP status codes
func StatusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.BlueprintMissing:
		return http.StatusServiceUnavailable // 503
	case errors.UnknownRoot, errors.UnknownSymbol:
		return http.StatusNotFound // 404
	case errors.InvalidArgument, errors.InvalidFacts:
		return http.StatusBadRequest // 400
	case errors.IncompatibleVersion, errors.MalformedBlueprint:
		return http.StatusUnprocessableEntity // 422
	case errors.Cancelled:
		return http.StatusRequestTimeout // 408
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 INVALID_ARGUMENT error
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, errors.New(errors.InvalidArgument, message, nil))
}

// MethodNotAllowed writes a 405 with the allowed method.
func MethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	WriteError(w, r, errors.New(errors.InternalError, message, err))
}
