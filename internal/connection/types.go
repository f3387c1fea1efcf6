package connection

import (
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrNoURL           = errors.New("websocket url is required")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Frame is the JSON envelope a relay may use. Frames that are not JSON
// objects are treated as plain text.
type Frame struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Message string `json:"message"` // Alternative to Text
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., wss://relay.example.com/ws)
	Header           http.Header   // Extra handshake headers (auth tokens)
	HandshakeTimeout time.Duration // Deadline for dial plus websocket handshake
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	PingInterval     time.Duration // How often to ping the server
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// SourceConfig configures a Source.
type SourceConfig struct {
	Client    ClientConfig
	Subscribe string   // Frame sent after connecting (empty sends nothing)
	Channels  []string // Accept only these channels (empty accepts all)
}
