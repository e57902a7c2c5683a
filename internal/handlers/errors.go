package handlers

import (
	"errors"
	"net/http"

	"larder/internal/costing"
	"larder/internal/editor"
	applog "larder/internal/log"
)

type validationResponse struct {
	Error            string                   `json:"error"`
	ValidationErrors costing.ValidationErrors `json:"validation_errors"`
}

type badRequestError struct {
	err error
}

func (e badRequestError) Error() string {
	return e.err.Error()
}

// writeEditorError maps engine errors to status codes.
func writeEditorError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid costing.ValidationErrors
		cycle   *costing.CompositionCycleError
		stale   *costing.StaleReferenceError
		bad     badRequestError
	)

	switch {
	case errors.As(err, &bad):
		writeJSONError(w, http.StatusBadRequest, bad.Error())
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "composite has invalid lines", ValidationErrors: invalid})
	case errors.As(err, &cycle):
		writeJSONError(w, http.StatusConflict, cycle.Error())
	case errors.As(err, &stale):
		writeJSONError(w, http.StatusNotFound, stale.Error())
	case errors.Is(err, editor.ErrSessionNotFound):
		writeJSONError(w, http.StatusNotFound, "no open editing session")
	case errors.Is(err, editor.ErrSessionClosed):
		writeJSONError(w, http.StatusConflict, "editing session is closed")
	case errors.Is(err, editor.ErrLineNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, costing.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		applog.Error(r.Context(), "editor request failed", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "catalog unavailable, please retry")
	}
}

// nonBlocking reports whether a resolution error leaves the request successful. Missing
// conversions and superseded lookups are shown on the line; lookup failures become warnings.
func nonBlocking(err error) bool {
	if err == nil || errors.Is(err, editor.ErrSuperseded) {
		return true
	}
	var missing *costing.ConversionNotFoundError
	if errors.As(err, &missing) {
		return true
	}
	return !errors.Is(err, editor.ErrSessionClosed) && !errors.Is(err, editor.ErrLineNotFound)
}
