package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"larder/internal/costing"
	"larder/internal/editor"
	applog "larder/internal/log"
)

const editorAPIPrefix = "/app/api/editor"

type openSessionRequest struct {
	Kind string     `json:"kind"`
	Name string     `json:"name"`
	ID   *uuid.UUID `json:"id"`
}

type referenceRequest struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

type lineRequest struct {
	Reference        *referenceRequest `json:"reference"`
	Quantity         *float64          `json:"quantity"`
	RecipeUnit       *uuid.UUID        `json:"recipe_unit"`
	ConversionFactor *float64          `json:"conversion_factor"`
}

type portionsRequest struct {
	Name         *string    `json:"name"`
	PortionCount *int       `json:"portion_count"`
	PortionPrice *float64   `json:"portion_price"`
	Unit         *uuid.UUID `json:"unit"`
}

type submitResponse struct {
	ID   uuid.UUID             `json:"id"`
	Kind costing.CompositeKind `json:"kind"`
}

// EditorResource dispatches the editing session API under /app/api/editor.
func EditorResource(w http.ResponseWriter, r *http.Request) {
	if workspace == nil || sessionManager == nil {
		applog.Debug(r.Context(), "editor request without workspace")
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, editorAPIPrefix)
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")

	switch {
	case path == "session":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		openEditorSession(w, r)
	case path == "state":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		showEditorState(w, r)
	case path == "lines":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		createEditorLine(w, r)
	case len(segments) == 2 && segments[0] == "lines":
		index, err := strconv.Atoi(segments[1])
		if err != nil {
			applog.Debug(r.Context(), "invalid line index", "index", segments[1], "error", err)
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodPut:
			updateEditorLine(w, r, index)
		case http.MethodDelete:
			deleteEditorLine(w, r, index)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case path == "portions":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		updateEditorPortions(w, r)
	case path == "submit":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		submitEditorSession(w, r)
	default:
		http.NotFound(w, r)
	}
}

// currentSession returns the editing session bound to the browser session.
func currentSession(r *http.Request) (*editor.Session, error) {
	value := sessionManager.GetString(r.Context(), sessionEditorKey)
	if value == "" {
		return nil, editor.ErrSessionNotFound
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", editor.ErrSessionNotFound, err)
	}
	return workspace.Get(id)
}

func openEditorSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(ctx, "invalid open session payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	kind, err := costing.ParseCompositeKind(payload.Kind)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var session *editor.Session
	if payload.ID != nil && *payload.ID != uuid.Nil {
		session, err = workspace.Open(ctx, kind, *payload.ID)
		if err != nil {
			writeEditorError(w, r, err)
			return
		}
	} else {
		session = workspace.New(kind, strings.TrimSpace(payload.Name))
	}

	if previous, err := currentSession(r); err == nil {
		workspace.Close(previous.ID())
	}
	if err := sessionManager.RenewToken(ctx); err != nil {
		applog.Error(ctx, "failed to renew session token", "error", err)
	}
	sessionManager.Put(ctx, sessionEditorKey, session.ID().String())

	applog.Info(ctx, "editing session opened", "session", session.ID(), "kind", kind)
	writeJSON(w, http.StatusCreated, session.State())
}

func showEditorState(w http.ResponseWriter, r *http.Request) {
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func createEditorLine(w http.ResponseWriter, r *http.Request) {
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}

	var payload lineRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		applog.Debug(r.Context(), "invalid line payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	index, err := session.AddLine()
	if err != nil {
		writeEditorError(w, r, err)
		return
	}
	if err := applyLineRequest(r, session, index, payload); err != nil {
		// the empty line stays so the user can correct it
		writeEditorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.State())
}

func updateEditorLine(w http.ResponseWriter, r *http.Request, index int) {
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}

	var payload lineRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid line payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := applyLineRequest(r, session, index, payload); err != nil {
		writeEditorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

// applyLineRequest applies the fields present in payload, then resolves the line's factor.
func applyLineRequest(r *http.Request, session *editor.Session, index int, payload lineRequest) error {
	ctx := r.Context()

	if payload.Reference != nil {
		kind, err := costing.ParseKind(payload.Reference.Kind)
		if err != nil {
			return badRequestError{err: err}
		}
		ref := costing.Reference{Kind: kind, ID: payload.Reference.ID}
		if err := session.SelectReference(ctx, index, ref); err != nil && !errors.Is(err, editor.ErrSuperseded) {
			return err
		}
	}
	if payload.RecipeUnit != nil {
		if err := session.UpdateRecipeUnit(index, *payload.RecipeUnit); err != nil {
			return err
		}
	}
	if payload.Quantity != nil {
		if err := session.UpdateQuantity(index, *payload.Quantity); err != nil {
			return err
		}
	}
	if payload.ConversionFactor != nil {
		if err := session.UpdateConversionFactor(index, *payload.ConversionFactor); err != nil {
			return err
		}
		return nil
	}

	if err := session.ResolveLine(ctx, index); !nonBlocking(err) {
		return err
	} else if err != nil {
		applog.Debug(ctx, "line resolution did not apply", "line", index, "error", err)
	}
	return nil
}

func deleteEditorLine(w http.ResponseWriter, r *http.Request, index int) {
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}
	if err := session.RemoveLine(index); err != nil {
		writeEditorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func updateEditorPortions(w http.ResponseWriter, r *http.Request) {
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}

	var payload portionsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		applog.Debug(r.Context(), "invalid portions payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if payload.Name != nil {
		if err := session.SetName(strings.TrimSpace(*payload.Name)); err != nil {
			writeEditorError(w, r, err)
			return
		}
	}
	if payload.Unit != nil {
		if err := session.SetUnit(*payload.Unit); err != nil {
			writeEditorError(w, r, err)
			return
		}
	}
	if payload.PortionCount != nil {
		if err := session.SetPortionCount(*payload.PortionCount); err != nil {
			writeEditorError(w, r, err)
			return
		}
	}
	if payload.PortionPrice != nil {
		if err := session.SetPortionPrice(*payload.PortionPrice); err != nil {
			if errors.Is(err, editor.ErrSessionClosed) {
				writeEditorError(w, r, err)
				return
			}
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, session.State())
}

func submitEditorSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := currentSession(r)
	if err != nil {
		writeEditorError(w, r, err)
		return
	}

	if err := session.ResolvePending(ctx); err != nil {
		applog.Warn(ctx, "pending conversions not resolved before submit", "session", session.ID(), "error", err)
	}

	kind := session.State().Kind
	id, err := workspace.Submit(ctx, session.ID())
	if err != nil {
		writeEditorError(w, r, err)
		return
	}
	sessionManager.Remove(ctx, sessionEditorKey)
	writeJSON(w, http.StatusOK, submitResponse{ID: id, Kind: kind})
}
