// Package sse pushes lookup and catalog events to browsers over
// Server-Sent Events.
package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// WriteTimeout bounds a single write so a stalled client cannot hold up a
// broadcast.
const WriteTimeout = 2 * time.Second

// Event types.
const (
	EventConnected     = "connected"
	EventLookup        = "lookup"
	EventCatalogReload = "catalog_reloaded"
)

// Event is one message sent to subscribers.
type Event struct {
	Data any    `json:"data,omitempty"`
	Type string `json:"type"`
}

// Client is a connected subscriber.
type Client struct {
	Writer  http.ResponseWriter
	Flusher http.Flusher
	Done    chan struct{}
	ID      string
	once    sync.Once
}

func (c *Client) close() {
	c.once.Do(func() { close(c.Done) })
}

// Broadcaster fans events out to every connected client.
type Broadcaster struct {
	clients map[string]*Client
	closed  chan struct{}
	mu      sync.RWMutex
	nextID  int
	once    sync.Once
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]*Client),
		closed:  make(chan struct{}),
	}
}

// AddClient registers w as a subscriber.
func (b *Broadcaster) AddClient(w http.ResponseWriter) (*Client, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	b.mu.Lock()
	b.nextID++
	client := &Client{
		ID:      fmt.Sprintf("client-%d", b.nextID),
		Writer:  w,
		Flusher: flusher,
		Done:    make(chan struct{}),
	}
	b.clients[client.ID] = client
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("SSE client connected")
	return client, nil
}

// RemoveClient unregisters a client. Safe to call more than once.
func (b *Broadcaster) RemoveClient(client *Client) {
	b.mu.Lock()
	delete(b.clients, client.ID)
	count := len(b.clients)
	b.mu.Unlock()

	client.close()
	log.Debug().Str("clientId", client.ID).Int("totalClients", count).Msg("SSE client disconnected")
}

// Publish sends an event of the given type to all clients.
func (b *Broadcaster) Publish(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal SSE event")
		return
	}
	message := []byte("data: " + string(payload) + "\n\n")

	b.mu.RLock()
	clients := make([]*Client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	dead := make(chan *Client, len(clients))
	var wg sync.WaitGroup
	for _, c := range clients {
		select {
		case <-c.Done:
			continue
		default:
		}
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			if !b.write(c, message) {
				dead <- c
			}
		}(c)
	}
	wg.Wait()
	close(dead)

	for c := range dead {
		b.RemoveClient(c)
	}
}

// write reports false when the client should be dropped.
func (b *Broadcaster) write(c *Client, message []byte) bool {
	result := make(chan error, 1)
	go func() {
		_, err := c.Writer.Write(message)
		if err == nil {
			c.Flusher.Flush()
		}
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			log.Debug().Err(err).Str("clientId", c.ID).Msg("SSE write failed")
			return false
		}
		return true
	case <-time.After(WriteTimeout):
		log.Warn().Str("clientId", c.ID).Dur("timeout", WriteTimeout).Msg("SSE write timed out")
		return false
	case <-c.Done:
		return true
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close ends every open stream. HTTP shutdown waits for handlers to return,
// so this must run before it.
func (b *Broadcaster) Close() {
	b.once.Do(func() { close(b.closed) })
}

// HandleSSE serves one event stream until the client goes away or the
// broadcaster is closed.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client, err := b.AddClient(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer b.RemoveClient(client)

	hello, _ := json.Marshal(Event{Type: EventConnected, Data: map[string]string{"clientId": client.ID}})
	_, _ = w.Write([]byte("data: " + string(hello) + "\n\n"))
	client.Flusher.Flush()

	select {
	case <-r.Context().Done():
	case <-client.Done:
	case <-b.closed:
	}
}
