package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/pkg/ctxutil"
)

// Op is one already-constructed mutation call. It runs with the
// transaction's context and returns the call's result.
type Op func(ctx context.Context) (any, error)

// TxState is the lifecycle state of one coordinated transaction.
type TxState int

const (
	TxIdle TxState = iota
	TxSessionStarted
	TxCommitted
	TxAborted
)

func (s TxState) String() string {
	switch s {
	case TxIdle:
		return "idle"
	case TxSessionStarted:
		return "session_started"
	case TxCommitted:
		return "committed"
	case TxAborted:
		return "aborted"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

type txCtxKey struct{}

type txInfo struct {
	id string
}

// InTx reports whether ctx carries a coordinated transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txCtxKey{}).(*txInfo)
	return ok
}

// TxManager groups mutation calls into one native transaction.
// Transactions are not retried: a transient failure aborts and is returned.
type TxManager struct {
	db  Database
	log *slog.Logger
}

// NewTxManager creates a new TxManager.
func NewTxManager(db Database, log *slog.Logger) *TxManager {
	return &TxManager{db: db, log: log.With("component", "txmanager")}
}

// Transaction runs ops in order inside one session. Either every op commits
// or none does. Results are returned in op order.
func (m *TxManager) Transaction(ctx context.Context, ops ...Op) ([]any, error) {
	results := make([]any, 0, len(ops))
	err := m.RunInTx(ctx, func(ctx context.Context) error {
		for i, op := range ops {
			res, err := op(ctx)
			if err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunInTx executes fn within a transaction.
// A call made with a context that already carries a transaction joins it:
// fn runs directly and the outer call decides commit or abort.
// On error from fn: aborts and returns *domain.TxAbortedError.
// On panic from fn: aborts, ends the session and re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if InTx(ctx) {
		return fn(ctx)
	}

	info := &txInfo{id: uuid.NewString()}
	state := TxIdle
	log := m.log.With("tx_id", info.id)
	if reqID := ctxutil.RequestIDFromCtx(ctx); reqID != "" {
		log = log.With("request_id", reqID)
	}

	sess, err := m.db.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	// Cleanup must run even when the caller's context is already done.
	cleanupCtx := context.WithoutCancel(ctx)
	defer sess.EndSession(cleanupCtx)

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	state = TxSessionStarted

	abort := func(cause any) {
		if abErr := sess.AbortTransaction(cleanupCtx); abErr != nil {
			log.Error("abort transaction", slog.String("error", abErr.Error()))
		}
		state = TxAborted
		log.Warn("transaction aborted", slog.String("state", state.String()), slog.Any("cause", cause))
	}

	defer func() {
		if r := recover(); r != nil {
			if state == TxSessionStarted {
				abort(r)
			}
			panic(r)
		}
	}()

	txCtx := context.WithValue(sess.Context(ctx), txCtxKey{}, info)

	if err := fn(txCtx); err != nil {
		abort(err)
		return &domain.TxAbortedError{Err: err}
	}

	if err := sess.CommitTransaction(ctx); err != nil {
		// The session is ended by the deferred call, which discards
		// whatever the server still holds for this transaction.
		state = TxAborted
		log.Warn("commit failed", slog.String("state", state.String()), slog.String("error", err.Error()))
		return &domain.TxAbortedError{Err: fmt.Errorf("commit transaction: %w", err)}
	}
	state = TxCommitted
	log.Debug("transaction committed", slog.String("state", state.String()))

	return nil
}
