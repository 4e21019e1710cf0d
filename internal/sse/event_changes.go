package sse

import (
	"context"
	"ms-events/internal/models"
	"sync"
)

const clientBuffer = 10

// ChangeEmitter fans EventChange values out to SSE subscribers. Subscribers either
// follow every event or a single event id.
type ChangeEmitter struct {
	mu          sync.RWMutex
	allClients  []chan models.EventChange
	eventClient map[int64][]chan models.EventChange
}

func NewChangeEmitter() *ChangeEmitter {
	return &ChangeEmitter{
		eventClient: make(map[int64][]chan models.EventChange),
	}
}

// SubscribeAll returns a channel receiving every change until ctx is done,
// after which the channel is closed.
func (e *ChangeEmitter) SubscribeAll(ctx context.Context) <-chan models.EventChange {
	clientChan := make(chan models.EventChange, clientBuffer)

	e.mu.Lock()
	e.allClients = append(e.allClients, clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		e.allClients = removeClient(e.allClients, clientChan)
		e.mu.Unlock()
	}()

	return clientChan
}

// SubscribeToEvent is SubscribeAll filtered to one event id.
func (e *ChangeEmitter) SubscribeToEvent(ctx context.Context, eventID int64) <-chan models.EventChange {
	clientChan := make(chan models.EventChange, clientBuffer)

	e.mu.Lock()
	e.eventClient[eventID] = append(e.eventClient[eventID], clientChan)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		remaining := removeClient(e.eventClient[eventID], clientChan)
		if len(remaining) == 0 {
			delete(e.eventClient, eventID)
		} else {
			e.eventClient[eventID] = remaining
		}
		e.mu.Unlock()
	}()

	return clientChan
}

// Emit never blocks: a subscriber whose buffer is full misses the change.
func (e *ChangeEmitter) Emit(change models.EventChange) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, clientChan := range e.allClients {
		select {
		case clientChan <- change:
		default:
		}
	}
	for _, clientChan := range e.eventClient[change.EventID] {
		select {
		case clientChan <- change:
		default:
		}
	}
}

func (e *ChangeEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := len(e.allClients)
	for _, clients := range e.eventClient {
		n += len(clients)
	}
	return n
}

// removeClient must be called with the write lock held; it closes the channel.
func removeClient(clients []chan models.EventChange, clientChan chan models.EventChange) []chan models.EventChange {
	for i, ch := range clients {
		if ch == clientChan {
			close(clientChan)
			return append(clients[:i], clients[i+1:]...)
		}
	}
	return clients
}
