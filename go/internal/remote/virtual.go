package remote

import "sync"

// VirtualRadio stands in for the transceiver when running without
// hardware. Frames handed to Inject come out of the next Poll.
type VirtualRadio struct {
	mu      sync.Mutex
	pending [][]byte
	closed  bool
}

func NewVirtualRadio() *VirtualRadio {
	return &VirtualRadio{}
}

func (v *VirtualRadio) Init() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = false
	return nil
}

func (v *VirtualRadio) Inject(frame []byte) {
	payload := make([]byte, PayloadSize)
	copy(payload, frame)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.pending = append(v.pending, payload)
}

func (v *VirtualRadio) Poll() ([][]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.pending
	v.pending = nil
	return out, nil
}

func (v *VirtualRadio) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.pending = nil
	return nil
}
