package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RecommendationEvent describes websocket payloads emitted to activity stream clients.
type RecommendationEvent struct {
	Type           string                 `json:"type"`
	OrgID          string                 `json:"org_id"`
	Recommendation *RecommendationSummary `json:"recommendation,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn  *websocket.Conn
	orgID string
	mu    sync.Mutex
}

// RecommendationNotifier keeps track of active websocket clients and broadcasts
// completed recommendations to the clients of the same organization.
type RecommendationNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewRecommendationNotifier constructs a notifier instance.
func NewRecommendationNotifier() *RecommendationNotifier {
	return &RecommendationNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection for orgID and acknowledges the subscription.
func (n *RecommendationNotifier) Register(conn *websocket.Conn, orgID string) *wsClient {
	client := &wsClient{conn: conn, orgID: orgID}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()

	_ = client.writeJSON(RecommendationEvent{Type: "subscribed", OrgID: orgID, Timestamp: time.Now().UTC()})
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *RecommendationNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the event to every client registered for event.OrgID.
func (n *RecommendationNotifier) Broadcast(event RecommendationEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	for client := range n.clients {
		if client.orgID != event.OrgID {
			continue
		}
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
}

// Subscribers returns the number of clients registered for orgID.
func (n *RecommendationNotifier) Subscribers(orgID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for client := range n.clients {
		if client.orgID == orgID {
			count++
		}
	}
	return count
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
