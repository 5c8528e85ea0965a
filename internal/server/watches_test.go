package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/store"
)

func TestValidCron(t *testing.T) {
	cases := []struct {
		spec string
		ok   bool
	}{
		{"@hourly", true},
		{"@daily", true},
		{"@weekly", false},
		{"0 6 * * 1", true},
		{"*/15 * * * *", true},
		{"not a cron", false},
	}
	for _, tc := range cases {
		if got := validCron(tc.spec); got != tc.ok {
			t.Errorf("validCron(%q) = %v, want %v", tc.spec, got, tc.ok)
		}
	}
}

func TestCreateWatchWithoutStore(t *testing.T) {
	e := echo.New()
	h := &WatchesHandler{DefaultMaxNodes: 10}

	ctx, _ := postJSON(e, "/api/watches", `{"query":"robotics"}`)
	err := h.create(ctx)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestCreateWatchDefaults(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	h := &WatchesHandler{Store: &store.Store{DB: db}, DefaultMaxNodes: 10}

	mock.ExpectExec(`INSERT INTO watches`).
		WithArgs(sqlmock.AnyArg(), "robotics in europe", "@daily", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, rec := postJSON(e, "/api/watches", `{"query":"robotics in europe"}`)
	if err := h.create(ctx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] == "" {
		t.Fatal("missing watch id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateWatchRejectsBadCron(t *testing.T) {
	e := echo.New()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	h := &WatchesHandler{Store: &store.Store{DB: db}, DefaultMaxNodes: 10}

	ctx, _ := postJSON(e, "/api/watches", `{"query":"robotics","cron":"@weekly"}`)
	errc := h.create(ctx)
	he, ok := errc.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", errc)
	}
}

func TestListWatches(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	h := &WatchesHandler{Store: &store.Store{DB: db}, DefaultMaxNodes: 10}

	mock.ExpectQuery(`SELECT id, query, cron_expr, max_nodes, created_at, last_run_at, last_run_id FROM watches`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "cron_expr", "max_nodes", "created_at", "last_run_at", "last_run_id"}).
			AddRow("w-1", "robotics", "@daily", 5, time.Now(), nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/watches", nil)
	rec := httptest.NewRecorder()
	if err := h.list(e.NewContext(req, rec)); err != nil {
		t.Fatalf("list: %v", err)
	}

	var watches []store.Watch
	if err := json.Unmarshal(rec.Body.Bytes(), &watches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(watches) != 1 || watches[0].ID != "w-1" || watches[0].LastRunAt != nil {
		t.Fatalf("unexpected watches %+v", watches)
	}
}

func TestDeleteWatchNotFound(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	h := &WatchesHandler{Store: &store.Store{DB: db}, DefaultMaxNodes: 10}

	mock.ExpectExec(`DELETE FROM watches`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodDelete, "/api/watches/nope", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("id")
	ctx.SetParamValues("nope")

	errd := h.remove(ctx)
	he, ok := errd.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", errd)
	}
}
