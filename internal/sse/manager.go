package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/library-server/internal/id"
)

// historySize is the number of recent events kept for Last-Event-ID replay.
const historySize = 256

// Filter selects the events a client receives. Empty fields match everything.
type Filter struct {
	UserID    string
	LibraryID string
}

func (f Filter) matches(e Event) bool {
	if f.UserID != "" && e.UserID != "" && f.UserID != e.UserID {
		return false
	}
	if f.LibraryID != "" && e.LibraryID != "" && f.LibraryID != e.LibraryID {
		return false
	}
	return true
}

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
	Filter      Filter
}

// Manager fans circulation events out to connected clients.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// history is a ring of the last historySize broadcast events.
	historyMu sync.Mutex
	history   []Event
	next      int

	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, 1000),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		history:           make([]Event, 0, historySize),
	}
}

// Start runs the broadcast loop until ctx is cancelled.
// Call it once at startup in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("SSE manager starting")

	heartbeatTicker := time.NewTicker(m.heartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.broadcast(event)

		case <-heartbeatTicker.C:
			m.broadcast(NewHeartbeatEvent())

		case <-ctx.Done():
			m.logger.Info("SSE manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, drains the queue and closes all clients.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownMu.Lock()
	if m.shutdown {
		m.shutdownMu.Unlock()
		return nil
	}
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		for event := range m.events {
			m.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("SSE event drain timeout, some events may be lost")
	}

	m.closeAllClients()
	m.logger.Info("SSE manager shutdown complete")
	return nil
}

// broadcast records event in the history and delivers it to matching clients.
func (m *Manager) broadcast(event Event) {
	if event.Type != EventHeartbeat {
		m.remember(event)
	}

	var delivered, dropped, filtered int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		if !client.Filter.matches(event) {
			filtered++
			continue
		}

		// Non-blocking send; slow clients lose events rather than stall the loop.
		select {
		case client.EventChan <- event:
			delivered++
		default:
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Group("stats",
				slog.Int("delivered", delivered),
				slog.Int("filtered", filtered),
				slog.Int("dropped", dropped)))
	}
}

func (m *Manager) remember(event Event) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	if len(m.history) < historySize {
		m.history = append(m.history, event)
		return
	}
	m.history[m.next] = event
	m.next = (m.next + 1) % historySize
}

// Since returns the remembered events after the one with lastID that match
// filter, oldest first. It returns nil when lastID is unknown.
func (m *Manager) Since(lastID string, filter Filter) []Event {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	n := len(m.history)
	ordered := make([]Event, 0, n)
	ordered = append(ordered, m.history[m.next:]...)
	ordered = append(ordered, m.history[:m.next]...)

	for i, e := range ordered {
		if e.ID != lastID {
			continue
		}
		var out []Event
		for _, later := range ordered[i+1:] {
			if filter.matches(later) {
				out = append(out, later)
			}
		}
		return out
	}
	return nil
}

// Connect registers a client receiving events that match filter.
func (m *Manager) Connect(filter Filter) (*Client, error) {
	clientID, err := id.Generate(id.PrefixSSEClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		Filter:      filter,
		EventChan:   make(chan Event, 100),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.String("user_id", filter.UserID),
		slog.String("library_id", filter.LibraryID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and closes its channels.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// Emit queues an event for broadcasting. It implements store.EventEmitter
// and ignores values that are not an Event.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("invalid event type emitted")
		return
	}

	// The read lock is held through the send so Shutdown cannot close the
	// channel underneath it.
	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()

	if m.shutdown {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Error("SSE event channel full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
	}
	clear(m.clients)
}
