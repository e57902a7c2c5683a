package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	templpkg "github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"

	"larder/internal/costing"
	"larder/internal/editor"
	applog "larder/internal/log"
)

const sessionEditorKey = "editor:session:id"

// UnitLister serves the global unit list.
type UnitLister interface {
	Units(ctx context.Context) ([]costing.Unit, error)
}

var (
	sessionManager *scs.SessionManager
	workspace      *editor.Workspace
	units          UnitLister
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(sm *scs.SessionManager, ws *editor.Workspace, unitLister UnitLister) {
	sessionManager = sm
	workspace = ws
	units = unitLister
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func renderComponent(w http.ResponseWriter, r *http.Request, component templpkg.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render fragment", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
