package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/heartmarshall/proposal-backend/internal/domain"
)

func newTestTxManager(t *testing.T) (*TxManager, *databaseMock, *sessionMock) {
	t.Helper()
	sess := &sessionMock{}
	db := &databaseMock{
		StartSessionFunc: func(ctx context.Context) (Session, error) { return sess, nil },
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTxManager(db, log), db, sess
}

func TestTransaction_CommitsInOrder(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)

	var order []int
	ops := []Op{
		func(ctx context.Context) (any, error) {
			if !InTx(ctx) {
				t.Error("op must run with a transaction context")
			}
			order = append(order, 1)
			return "a", nil
		},
		func(ctx context.Context) (any, error) { order = append(order, 2); return "b", nil },
	}

	results, err := tm.Transaction(context.Background(), ops...)
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if !reflect.DeepEqual(results, []any{"a", "b"}) {
		t.Fatalf("results = %v", results)
	}
	if !reflect.DeepEqual(order, []int{1, 2}) {
		t.Fatalf("ops ran out of order: %v", order)
	}
	if got, want := sess.EventsCalls(), []string{"start", "commit", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session events = %v, want %v", got, want)
	}
}

func TestTransaction_AbortsOnOpError(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)
	cause := errors.New("boom")

	ranThird := false
	results, err := tm.Transaction(context.Background(),
		func(ctx context.Context) (any, error) { return 1, nil },
		func(ctx context.Context) (any, error) { return nil, cause },
		func(ctx context.Context) (any, error) { ranThird = true; return 3, nil },
	)

	if results != nil {
		t.Fatalf("results should be nil on abort, got %v", results)
	}
	if !errors.Is(err, domain.ErrTransactionAborted) || !errors.Is(err, cause) {
		t.Fatalf("error = %v, want ErrTransactionAborted wrapping cause", err)
	}
	var txErr *domain.TxAbortedError
	if !errors.As(err, &txErr) {
		t.Fatalf("error should be *TxAbortedError, got %T", err)
	}
	if ranThird {
		t.Fatal("ops after the failing one must not run")
	}
	if got, want := sess.EventsCalls(), []string{"start", "abort", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session events = %v, want %v", got, want)
	}
}

func TestTransaction_CommitFailure(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)
	sess.CommitTransactionFunc = func(ctx context.Context) error { return errors.New("write conflict") }

	_, err := tm.Transaction(context.Background(), func(ctx context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, domain.ErrTransactionAborted) {
		t.Fatalf("error = %v, want ErrTransactionAborted", err)
	}
	if got, want := sess.EventsCalls(), []string{"start", "commit", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session events = %v, want %v", got, want)
	}
}

func TestRunInTx_StartSessionError(t *testing.T) {
	t.Parallel()

	unavailable := errors.New("no servers")
	db := &databaseMock{
		StartSessionFunc: func(ctx context.Context) (Session, error) { return nil, unavailable },
	}
	tm := NewTxManager(db, slog.New(slog.NewTextHandler(io.Discard, nil)))

	called := false
	err := tm.RunInTx(context.Background(), func(ctx context.Context) error { called = true; return nil })
	if !errors.Is(err, unavailable) {
		t.Fatalf("error = %v, want start session failure", err)
	}
	if called {
		t.Fatal("fn must not run without a session")
	}
}

func TestRunInTx_StartTransactionError(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)
	sess.StartTransactionFunc = func() error { return errors.New("already in progress") }

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := sess.EventsCalls(), []string{"start", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session must still be ended, events = %v", got)
	}
}

func TestRunInTx_PanicAbortsAndRepanics(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)

	defer func() {
		r := recover()
		if r != "kaboom" {
			t.Fatalf("recovered %v, want kaboom", r)
		}
		if got, want := sess.EventsCalls(), []string{"start", "abort", "end"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("session events = %v, want %v", got, want)
		}
	}()

	_ = tm.RunInTx(context.Background(), func(ctx context.Context) error { panic("kaboom") })
	t.Fatal("RunInTx should have re-panicked")
}

func TestRunInTx_NestedJoinsOuter(t *testing.T) {
	t.Parallel()

	tm, db, sess := newTestTxManager(t)

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(ctx context.Context) error {
			_, err := tm.Transaction(ctx, func(ctx context.Context) (any, error) { return nil, nil })
			return err
		})
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}
	if n := len(db.StartSessionCalls()); n != 1 {
		t.Fatalf("StartSession calls = %d, want 1", n)
	}
	if got, want := sess.EventsCalls(), []string{"start", "commit", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session events = %v, want %v", got, want)
	}
}

func TestRunInTx_NestedErrorAbortsOuter(t *testing.T) {
	t.Parallel()

	tm, _, sess := newTestTxManager(t)
	cause := errors.New("inner failed")

	err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
		return tm.RunInTx(ctx, func(ctx context.Context) error { return cause })
	})
	if !errors.Is(err, cause) || !errors.Is(err, domain.ErrTransactionAborted) {
		t.Fatalf("error = %v", err)
	}
	if got, want := sess.EventsCalls(), []string{"start", "abort", "end"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("session events = %v, want %v", got, want)
	}
}

func TestTxState_String(t *testing.T) {
	t.Parallel()

	tests := map[TxState]string{
		TxIdle:           "idle",
		TxSessionStarted: "session_started",
		TxCommitted:      "committed",
		TxAborted:        "aborted",
		TxState(9):       "TxState(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}
