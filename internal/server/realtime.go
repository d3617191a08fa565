package server

import (
	"context"
	"sync"
	"time"
)

const (
	// RefreshEventTreeChanged signals that the node hierarchy of a project
	// changed and the writing surface should re-fetch its tree.
	RefreshEventTreeChanged = "tree-change"
	// RefreshEventRevisionSaved signals a new prose revision on a node.
	RefreshEventRevisionSaved = "revision-change"
	// RefreshEventCharacterChanged signals a roster mutation.
	RefreshEventCharacterChanged = "character-change"
	// RefreshEventProjectChanged signals title, description or level label edits.
	RefreshEventProjectChanged = "project-change"

	refreshEventHeartbeat = "heartbeat"
)

// RefreshMessage is the fire-and-forget invalidation signal published after
// every mutation, scoped to the project it touched.
type RefreshMessage struct {
	ProjectID string
	EventType string
	EntityIDs []string
	Timestamp time.Time
}

// RefreshDispatcher fans refresh messages out to every open stream for a
// project. Publishing never blocks; a slow subscriber just misses events and
// re-fetches on the next one it receives.
type RefreshDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*refreshSubscriber
	nextID      int64
	bufferSize  int
}

type refreshSubscriber struct {
	id     int64
	stream chan RefreshMessage
}

func NewRefreshDispatcher() *RefreshDispatcher {
	return &RefreshDispatcher{
		subscribers: make(map[string]map[int64]*refreshSubscriber),
		bufferSize:  16,
	}
}

func (d *RefreshDispatcher) Subscribe(ctx context.Context, projectID string) (<-chan RefreshMessage, func()) {
	if projectID == "" {
		ch := make(chan RefreshMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &refreshSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RefreshMessage, d.bufferSize),
	}
	d.registerSubscriber(projectID, subscriber)
	cleanup := func() {
		d.unregisterSubscriber(projectID, subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RefreshDispatcher) Publish(message RefreshMessage) {
	if message.ProjectID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	subscribers := d.subscribers[message.ProjectID]
	if len(subscribers) == 0 {
		d.mu.RUnlock()
		return
	}
	copies := make([]*refreshSubscriber, 0, len(subscribers))
	for _, subscriber := range subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

func (d *RefreshDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RefreshDispatcher) registerSubscriber(projectID string, subscriber *refreshSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[projectID]; !ok {
		d.subscribers[projectID] = make(map[int64]*refreshSubscriber)
	}
	d.subscribers[projectID][subscriber.id] = subscriber
}

func (d *RefreshDispatcher) unregisterSubscriber(projectID string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[projectID]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, projectID)
		}
	}
	d.mu.Unlock()
}
