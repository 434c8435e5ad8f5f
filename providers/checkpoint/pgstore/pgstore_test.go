package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/nvaccaro/floe/workflow"
)

func newMockPool(testCase *testing.T) pgxmock.PgxPoolIface {
	testCase.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		testCase.Fatalf("failed to create pgxmock pool: %v", err)
	}
	testCase.Cleanup(mock.Close)
	return mock
}

func sampleState(testCase *testing.T) (*workflow.GraphState, []byte) {
	testCase.Helper()

	state := workflow.NewGraphState(map[string]any{"rows": 42})
	state.NodeStatuses["extract"] = workflow.NodeCompleted
	state.ExecutionPath = append(state.ExecutionPath, "extract")

	encoded, err := json.Marshal(state)
	if err != nil {
		testCase.Fatalf("marshal state: %v", err)
	}
	return state, encoded
}

func TestNew_Defaults(testCase *testing.T) {
	mock := newMockPool(testCase)

	store := New(mock, "migration")
	if store.tableName != defaultTableName {
		testCase.Errorf("expected default table name %q, got %q", defaultTableName, store.tableName)
	}
	if store.workflow != "migration" {
		testCase.Errorf("expected workflow %q, got %q", "migration", store.workflow)
	}
}

func TestNew_WithTableName(testCase *testing.T) {
	mock := newMockPool(testCase)

	store := New(mock, "migration", WithTableName("custom_checkpoints"))

	// pgx.Identifier.Sanitize() quotes the name.
	expected := `"custom_checkpoints"`
	if store.tableName != expected {
		testCase.Errorf("expected table name %q, got %q", expected, store.tableName)
	}
}

func TestSave_Upserts(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")
	state, encoded := sampleState(testCase)

	mock.ExpectExec("INSERT INTO floe_checkpoints").
		WithArgs("migration", "after-extract", encoded).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Save(context.Background(), "after-extract", state); err != nil {
		testCase.Fatalf("Save failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		testCase.Errorf("unmet expectations: %v", err)
	}
}

func TestLoad_DecodesState(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")
	_, encoded := sampleState(testCase)

	mock.ExpectQuery("SELECT state FROM floe_checkpoints").
		WithArgs("migration", "after-extract").
		WillReturnRows(pgxmock.NewRows([]string{"state"}).AddRow(encoded))

	loaded, err := store.Load(context.Background(), "after-extract")
	if err != nil {
		testCase.Fatalf("Load failed: %v", err)
	}

	// JSON numbers decode as float64.
	if got := loaded.GetOr("rows", nil); got != float64(42) {
		testCase.Errorf("expected rows=42, got %v", got)
	}
	if got := loaded.Status("extract"); got != workflow.NodeCompleted {
		testCase.Errorf("expected extract completed, got %s", got)
	}
	if len(loaded.ExecutionPath) != 1 || loaded.ExecutionPath[0] != "extract" {
		testCase.Errorf("expected execution path [extract], got %v", loaded.ExecutionPath)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		testCase.Errorf("unmet expectations: %v", err)
	}
}

func TestLoad_Unknown(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")

	mock.ExpectQuery("SELECT state FROM floe_checkpoints").
		WithArgs("migration", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Load(context.Background(), "missing")
	if !errors.Is(err, workflow.ErrCheckpointNotFound) {
		testCase.Errorf("expected ErrCheckpointNotFound, got %v", err)
	}
}

func TestList_ReturnsIDs(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")

	mock.ExpectQuery("SELECT checkpoint_id FROM floe_checkpoints").
		WithArgs("migration").
		WillReturnRows(pgxmock.NewRows([]string{"checkpoint_id"}).
			AddRow("after-extract").
			AddRow("after-load"))

	ids, err := store.List(context.Background())
	if err != nil {
		testCase.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "after-extract" || ids[1] != "after-load" {
		testCase.Errorf("expected [after-extract after-load], got %v", ids)
	}
}

func TestList_Empty(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")

	mock.ExpectQuery("SELECT checkpoint_id FROM floe_checkpoints").
		WithArgs("migration").
		WillReturnRows(pgxmock.NewRows([]string{"checkpoint_id"}))

	ids, err := store.List(context.Background())
	if err != nil {
		testCase.Fatalf("List failed: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		testCase.Errorf("expected empty non-nil slice, got %v", ids)
	}
}

func TestDelete(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")

	mock.ExpectExec("DELETE FROM floe_checkpoints").
		WithArgs("migration", "after-extract").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := store.Delete(context.Background(), "after-extract"); err != nil {
		testCase.Fatalf("Delete failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		testCase.Errorf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema(testCase *testing.T) {
	mock := newMockPool(testCase)
	store := New(mock, "migration")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS floe_checkpoints").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := store.EnsureSchema(context.Background()); err != nil {
		testCase.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		testCase.Errorf("unmet expectations: %v", err)
	}
}
