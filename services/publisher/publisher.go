package publisher

// Publisher represents a service for publishing match records
type Publisher interface {
	// Publish publishes a serialized record to the stream
	Publish(message []byte) error

	// Close closes the publisher connection
	Close() error
}
