package store

import (
	"context"
	"sync"
)

var _ Database = &databaseMock{}

type databaseMock struct {
	CollectionFunc   func(name string) Collection
	StartSessionFunc func(ctx context.Context) (Session, error)

	calls struct {
		Collection []struct {
			Name string
		}
		StartSession []struct {
			Ctx context.Context
		}
	}
	lockCollection   sync.RWMutex
	lockStartSession sync.RWMutex
}

func (mock *databaseMock) Collection(name string) Collection {
	if mock.CollectionFunc == nil {
		panic("databaseMock.CollectionFunc: method is nil but Database.Collection was just called")
	}
	callInfo := struct{ Name string }{Name: name}
	mock.lockCollection.Lock()
	mock.calls.Collection = append(mock.calls.Collection, callInfo)
	mock.lockCollection.Unlock()
	return mock.CollectionFunc(name)
}

func (mock *databaseMock) StartSession(ctx context.Context) (Session, error) {
	if mock.StartSessionFunc == nil {
		panic("databaseMock.StartSessionFunc: method is nil but Database.StartSession was just called")
	}
	callInfo := struct{ Ctx context.Context }{Ctx: ctx}
	mock.lockStartSession.Lock()
	mock.calls.StartSession = append(mock.calls.StartSession, callInfo)
	mock.lockStartSession.Unlock()
	return mock.StartSessionFunc(ctx)
}

func (mock *databaseMock) StartSessionCalls() []struct{ Ctx context.Context } {
	mock.lockStartSession.RLock()
	calls := mock.calls.StartSession
	mock.lockStartSession.RUnlock()
	return calls
}

var _ Session = &sessionMock{}

// sessionMock records the order of lifecycle calls in Events.
type sessionMock struct {
	StartTransactionFunc  func() error
	CommitTransactionFunc func(ctx context.Context) error
	AbortTransactionFunc  func(ctx context.Context) error

	mu     sync.Mutex
	Events []string
}

func (mock *sessionMock) record(ev string) {
	mock.mu.Lock()
	mock.Events = append(mock.Events, ev)
	mock.mu.Unlock()
}

func (mock *sessionMock) EventsCalls() []string {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	return append([]string(nil), mock.Events...)
}

func (mock *sessionMock) StartTransaction() error {
	mock.record("start")
	if mock.StartTransactionFunc == nil {
		return nil
	}
	return mock.StartTransactionFunc()
}

func (mock *sessionMock) Context(ctx context.Context) context.Context {
	return ctx
}

func (mock *sessionMock) CommitTransaction(ctx context.Context) error {
	mock.record("commit")
	if mock.CommitTransactionFunc == nil {
		return nil
	}
	return mock.CommitTransactionFunc(ctx)
}

func (mock *sessionMock) AbortTransaction(ctx context.Context) error {
	mock.record("abort")
	if mock.AbortTransactionFunc == nil {
		return nil
	}
	return mock.AbortTransactionFunc(ctx)
}

func (mock *sessionMock) EndSession(context.Context) {
	mock.record("end")
}
