package handlers

import (
	"context"
	"io"
	"net/http"

	templpkg "github.com/a-h/templ"
	"github.com/google/uuid"

	applog "larder/internal/log"
	"larder/internal/views/costsheet"
	"larder/internal/views/theme"
)

// CostSheet renders the current editing session as HTML. htmx requests receive the bare
// fragment; other requests receive a minimal document around it.
func CostSheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if workspace == nil || sessionManager == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	session, err := currentSession(r)
	if err != nil {
		applog.Debug(r.Context(), "cost sheet requested without editing session", "error", err)
		http.Error(w, "no open editing session", http.StatusNotFound)
		return
	}

	names := make(map[uuid.UUID]string)
	if units != nil {
		list, err := units.Units(r.Context())
		if err != nil {
			applog.Warn(r.Context(), "cost sheet rendered without unit names", "error", err)
		}
		for _, unit := range list {
			names[unit.ID] = unit.Name
		}
	}

	sheet := costsheet.FromState(session.State(), names, theme.Resolve(r.URL.Query().Get("theme")))
	component := costsheet.Render(sheet)
	if !isHTMX(r) {
		component = document(sheet.Title, component)
	}
	renderComponent(w, r, component)
}

func document(title string, body templpkg.Component) templpkg.Component {
	return templpkg.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+templpkg.EscapeString(title)+`</title></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
