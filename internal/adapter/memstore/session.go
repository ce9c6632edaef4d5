package memstore

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var errNoTransaction = errors.New("memstore: no transaction in progress")

// session implements store.Session. Collection calls do not need the
// session in their context: the whole store is the transaction.
type session struct {
	s *Store

	mu     sync.Mutex
	active bool
	snap   map[string][]bson.M
}

func (ss *session) StartTransaction() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.active {
		return errors.New("memstore: transaction already in progress")
	}
	ss.s.txMu.Lock()
	ss.snap = ss.s.snapshot()
	ss.active = true
	return nil
}

func (ss *session) Context(ctx context.Context) context.Context {
	return ctx
}

func (ss *session) CommitTransaction(context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.active {
		return errNoTransaction
	}
	ss.finish()
	return nil
}

func (ss *session) AbortTransaction(context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.active {
		return errNoTransaction
	}
	ss.s.restore(ss.snap)
	ss.finish()
	return nil
}

func (ss *session) EndSession(ctx context.Context) {
	ss.mu.Lock()
	active := ss.active
	ss.mu.Unlock()
	if active {
		_ = ss.AbortTransaction(ctx)
	}
}

func (ss *session) finish() {
	ss.snap = nil
	ss.active = false
	ss.s.txMu.Unlock()
}
