package realtime

import "context"

// Conn abstracts one bidirectional client connection.
// Transports adapt their socket type to it so the engine stays transport-agnostic.
type Conn interface {
	// Read blocks for the next text frame. It returns io.EOF once the peer
	// closed the connection normally.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single text frame. Calls are serialized by the session.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection and unblocks a pending Read.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}
