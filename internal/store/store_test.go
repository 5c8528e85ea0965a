package store

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestSaveRunUpserts(t *testing.T) {
	s, mock := newMockStore(t)

	graph := &runs.Graph{
		Nodes: []runs.GraphNode{{ID: "user-node", Name: "User", Type: runs.NodeTypeUser}},
		Links: []runs.GraphLink{},
	}
	mock.ExpectExec(`INSERT INTO runs \(id, query, graph_data\) VALUES \(\$1,\$2,\$3\)\s+ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("run-1", "Robotics", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveRun(context.Background(), "run-1", "Robotics", graph); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRunNilGraph(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs("run-1", "Robotics", []byte(nil)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SaveRun(context.Background(), "run-1", "Robotics", nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, query, graph_data, created_at FROM runs WHERE id=\$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "graph_data", "created_at"}))

	_, err := s.GetRun(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRunsDecodesGraph(t *testing.T) {
	s, mock := newMockStore(t)

	graphJSON := []byte(`{"nodes":[{"id":"user-node","name":"User","type":"user","description":""}],"links":[]}`)
	mock.ExpectQuery(`SELECT id, query, graph_data, created_at FROM runs ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "query", "graph_data", "created_at"}).
			AddRow("run-2", "Robotics", graphJSON, time.Now()).
			AddRow("run-1", "Optics", nil, time.Now().Add(-time.Hour)))

	recs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d runs, want 2", len(recs))
	}
	if recs[0].Graph == nil || len(recs[0].Graph.Nodes) != 1 {
		t.Fatalf("graph not decoded: %+v", recs[0].Graph)
	}
	if recs[1].Graph != nil {
		t.Fatal("nil graph_data decoded to a graph")
	}
}

func TestSetUserNameUpdatesExistingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET name=\$1`).
		WithArgs("Grace").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetUserName(context.Background(), "Grace"); err != nil {
		t.Fatalf("SetUserName: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetUserNameInsertsWhenMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE users SET name=\$1`).
		WithArgs("Grace").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO users \(name\) VALUES \(\$1\)`).
		WithArgs("Grace").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.SetUserName(context.Background(), "Grace"); err != nil {
		t.Fatalf("SetUserName: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetUserNameNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT name FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	_, err := s.GetUserName(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteWatchNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM watches WHERE id=\$1`).
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.DeleteWatch(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateWatchReturnsID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO watches`).
		WithArgs(sqlmock.AnyArg(), "Robotics", "@daily", 10).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.CreateWatch(context.Background(), "Robotics", "@daily", 10)
	if err != nil {
		t.Fatalf("CreateWatch: %v", err)
	}
	if id == "" {
		t.Fatal("empty watch id")
	}
}
