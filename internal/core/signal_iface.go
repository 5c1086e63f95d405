package core

// SignalConnection is a push channel towards one signaling client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues msg without blocking and fails when the client cannot keep up.
	TrySend(msg []byte) error
	Close()
}
