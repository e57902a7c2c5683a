package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"larder/internal/catalog"
	"larder/internal/conversion"
	"larder/internal/editor"
	"larder/models"
)

type editorHarness struct {
	db      *gorm.DB
	handler http.Handler
	cookies map[string]*http.Cookie

	kg      uuid.UUID
	portion uuid.UUID
	tomato  uuid.UUID
	bun     uuid.UUID
}

func withTestEditor(t *testing.T) (*editorHarness, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Unit{},
		&models.Ingredient{},
		&models.SupplierOffer{},
		&models.Preparation{},
		&models.MenuItem{},
		&models.CompositionLine{},
		&models.ItemConversion{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	h := &editorHarness{db: db, cookies: make(map[string]*http.Cookie)}
	kg := models.Unit{Name: "kg"}
	portion := models.Unit{Name: "portion"}
	for _, unit := range []*models.Unit{&kg, &portion} {
		if err := db.Create(unit).Error; err != nil {
			t.Fatalf("failed to create unit: %v", err)
		}
	}
	tomato := models.Ingredient{Name: "Tomato", BaseUnitID: kg.ID, Offers: []models.SupplierOffer{{Supplier: "Farm", UnitCost: 4.99, PackSize: 1}}}
	bun := models.Ingredient{Name: "Bun", BaseUnitID: portion.ID, Offers: []models.SupplierOffer{{Supplier: "Bakery", UnitCost: 9.6, PackSize: 12}}}
	for _, ingredient := range []*models.Ingredient{&tomato, &bun} {
		if err := db.Create(ingredient).Error; err != nil {
			t.Fatalf("failed to create ingredient: %v", err)
		}
	}
	h.kg, h.portion, h.tomato, h.bun = kg.ID, portion.ID, tomato.ID, bun.ID

	originalSM, originalWS, originalUnits := sessionManager, workspace, units
	sm := scs.New()
	reader := catalog.NewGormCatalog(db)
	resolver := conversion.NewResolver(reader, conversion.Options{})
	Configure(sm, editor.NewWorkspace(reader, resolver, catalog.NewStore(db), nil), resolver)

	mux := http.NewServeMux()
	mux.HandleFunc("/app/api/editor/", EditorResource)
	mux.HandleFunc("/app/api/units", Units)
	mux.HandleFunc("/app/editor/sheet", CostSheet)
	h.handler = sm.LoadAndSave(mux)

	return h, func() {
		Configure(originalSM, originalWS, originalUnits)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (h *editorHarness) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range h.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	for _, cookie := range w.Result().Cookies() {
		h.cookies[cookie.Name] = cookie
	}
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) editor.State {
	t.Helper()
	var state editor.State
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("failed to decode state: %v (%s)", err, w.Body.String())
	}
	return state
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d: %s", w.Code, want, w.Body.String())
	}
}
