//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

type IRegistry interface {
	Attach(conn domain.ConnectionID, sink EventSink)
	Detach(conn domain.ConnectionID) (string, bool)
	Register(conn domain.ConnectionID, name string) error
	NameOf(conn domain.ConnectionID) (string, bool)
	Names() []string
	Sinks() []EventSink
	SinkOf(conn domain.ConnectionID) (EventSink, bool)
}

type IOrchestrator interface {
	Connect() (domain.ConnectionID, <-chan event.DomainEvent)
	Dispatch(cmd domain.Command)
	Start(ctx context.Context) error
	Stop()
}
