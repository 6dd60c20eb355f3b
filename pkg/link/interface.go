package link

// Device defines the interface for meter boards (real or simulated).
type Device interface {
	Connect() error
	Close() error
	Samples() <-chan RawSample
	ToggleSource() error
	ClearFault() error
	IsConnected() bool
}

var _ Device = (*Serial)(nil)

var _ Device = (*Mock)(nil)
