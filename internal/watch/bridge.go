package watch

import (
	"context"

	"codeberg.org/pageloom/server/internal/logger"
)

// kind of change reported by an external file-watch producer
type EventKind int

const (
	EventCreate EventKind = iota
	EventModify
	EventRemove
)

// one raw change event from the producer
type Event struct {
	Path string
	Kind EventKind
}

// emits raw change events; the watch mechanism itself lives outside this
// server and is consumed only at this boundary
type Producer interface {
	Events() <-chan Event
}

// pending-change surface the bridge feeds.
// *debounce.Coalescer satisfies it.
type ChangeQueue interface {
	QueueChange(sessionID, changeKey string)
}

// resolves which sessions care about a changed path
type SessionResolver func(path string) []string

// forwards producer events into the debounce coalescer, one QueueChange per
// affected session with the path as the change key
type Bridge struct {
	producer Producer
	changes  ChangeQueue
	resolve  SessionResolver
}

// creates a watch bridge
func NewBridge(producer Producer, changes ChangeQueue, resolve SessionResolver) *Bridge {
	return &Bridge{
		producer: producer,
		changes:  changes,
		resolve:  resolve,
	}
}

// consumes producer events until the context is cancelled
func (b *Bridge) Run(ctx context.Context) {
	events := b.producer.Events()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				logger.Info("watch producer closed")
				return
			}

			for _, sessionID := range b.resolve(event.Path) {
				b.changes.QueueChange(sessionID, event.Path)
			}
		}
	}
}
