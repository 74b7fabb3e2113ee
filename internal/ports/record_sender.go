package ports

// RecordSender writes one fixed-size wire record per call.
// pkg/msgtransport.Transport is the production implementation.
type RecordSender interface {
	// SendRecord writes record in one attempt. It does not retry.
	SendRecord(record []byte) error

	// Close releases the underlying connection.
	Close() error
}
