package core

// Client is a single realtime connection as seen by the core layer. One
// logical user may own several clients at once (multiple tabs or devices).
type Client struct {
	ID     string
	UserID string // empty until the connection identifies
	Events chan *Event
	Rooms  map[string]struct{}
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, 8),
		Rooms:  make(map[string]struct{}),
	}
}

// send delivers an event without blocking. Slow consumers drop events; REST
// remains the durable path.
func (c *Client) send(event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
