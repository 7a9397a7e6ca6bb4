package sse

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// BroadcasterSuite is a test suite for Broadcaster operations.
type BroadcasterSuite struct {
	suite.Suite
	broadcaster *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.broadcaster = NewBroadcaster()
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}

// mockResponseWriter implements http.ResponseWriter and http.Flusher for testing.
type mockResponseWriter struct {
	header http.Header
	body   []byte
	err    error
	mu     sync.Mutex
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{header: make(http.Header)}
}

func (m *mockResponseWriter) Header() http.Header { return m.header }

func (m *mockResponseWriter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.body = append(m.body, data...)
	return len(data), nil
}

func (m *mockResponseWriter) WriteHeader(int) {}

func (m *mockResponseWriter) Flush() {}

func (m *mockResponseWriter) Body() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.body)
}

// noFlushWriter lacks http.Flusher.
type noFlushWriter struct{ http.ResponseWriter }

// decodeEvents parses every "data:" line of an SSE body.
func decodeEvents(t *testing.T, body string) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var e Event
		require.NoError(t, json.Unmarshal([]byte(payload), &e))
		events = append(events, e)
	}
	return events
}

// TestAddRemoveClient tests client registration.
func (s *BroadcasterSuite) TestAddRemoveClient() {
	client, err := s.broadcaster.AddClient(newMockResponseWriter())
	s.Require().NoError(err)
	s.NotEmpty(client.ID)
	s.Equal(1, s.broadcaster.ClientCount())

	s.broadcaster.RemoveClient(client)
	s.broadcaster.RemoveClient(client)
	s.Equal(0, s.broadcaster.ClientCount())

	select {
	case <-client.Done:
	default:
		s.Fail("Done channel should be closed")
	}
}

// TestAddClient_NoFlusher tests that non-streaming writers are rejected.
func (s *BroadcasterSuite) TestAddClient_NoFlusher() {
	_, err := s.broadcaster.AddClient(noFlushWriter{})
	s.Error(err)
	s.Equal(0, s.broadcaster.ClientCount())
}

// TestPublish tests that every client receives the event.
func (s *BroadcasterSuite) TestPublish() {
	writers := make([]*mockResponseWriter, 3)
	for i := range writers {
		writers[i] = newMockResponseWriter()
		_, err := s.broadcaster.AddClient(writers[i])
		s.Require().NoError(err)
	}

	s.broadcaster.Publish(EventLookup, map[string]string{"control": "AC-2"})

	for i, w := range writers {
		events := decodeEvents(s.T(), w.Body())
		s.Require().Len(events, 1, "client %d", i)
		s.Equal(EventLookup, events[0].Type)
		s.Equal(map[string]any{"control": "AC-2"}, events[0].Data)
	}
}

// TestPublish_NoClients tests publishing with nobody listening.
func (s *BroadcasterSuite) TestPublish_NoClients() {
	s.NotPanics(func() {
		s.broadcaster.Publish(EventCatalogReload, nil)
	})
}

// TestPublish_DropsFailedClients tests dead client cleanup.
func (s *BroadcasterSuite) TestPublish_DropsFailedClients() {
	good := newMockResponseWriter()
	bad := newMockResponseWriter()
	bad.err = errors.New("broken pipe")

	_, err := s.broadcaster.AddClient(good)
	s.Require().NoError(err)
	badClient, err := s.broadcaster.AddClient(bad)
	s.Require().NoError(err)

	s.broadcaster.Publish(EventLookup, nil)

	s.Equal(1, s.broadcaster.ClientCount())
	s.Contains(good.Body(), EventLookup)
	select {
	case <-badClient.Done:
	default:
		s.Fail("failed client should be closed")
	}
}

func TestClientUniqueIDs(t *testing.T) {
	b := NewBroadcaster()
	ids := make(map[string]bool)

	for i := 0; i < 100; i++ {
		client, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
		assert.False(t, ids[client.ID], "ID %s should be unique", client.ID)
		ids[client.ID] = true
	}
}

func TestHandleSSE(t *testing.T) {
	b := NewBroadcaster()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.HandleSSE(rec, req)
	}()

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("HandleSSE did not return after Close")
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	events := decodeEvents(t, rec.Body.String())
	require.NotEmpty(t, events)
	assert.Equal(t, EventConnected, events[0].Type)
	assert.Equal(t, 0, b.ClientCount())
}

func TestHandleSSE_ClientGone(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(http.HandlerFunc(b.HandleSSE))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, resp.Body.Close())
	assert.Eventually(t, func() bool { return b.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBroadcaster()
	for i := 0; i < 10; i++ {
		_, err := b.AddClient(newMockResponseWriter())
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Publish(EventLookup, map[string]int{"index": i})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, b.ClientCount())
}
