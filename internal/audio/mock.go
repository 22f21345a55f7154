package audio

import (
	"fmt"
	"sync"
)

// MockTap plays back pre-built blocks for testing.
type MockTap struct {
	mu        sync.Mutex
	blocks    [][]int16
	errs      map[int]error
	index     int
	blockSize int
	closed    bool
}

// NewMockTap creates a tap that returns blocks in order and then repeats the last one.
func NewMockTap(blockSize int, blocks ...[]int16) *MockTap {
	return &MockTap{
		blocks:    blocks,
		errs:      make(map[int]error),
		blockSize: blockSize,
	}
}

// FailAt makes the read with the given zero-based index return err.
func (m *MockTap) FailAt(read int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[read] = err
}

// BlockSize returns the configured block size.
func (m *MockTap) BlockSize() int {
	return m.blockSize
}

// Read returns the next scripted block.
func (m *MockTap) Read() ([]int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrTapClosed
	}
	i := m.index
	m.index++
	if err, ok := m.errs[i]; ok {
		return nil, err
	}
	if len(m.blocks) == 0 {
		return make([]int16, m.blockSize), nil
	}
	if i >= len(m.blocks) {
		i = len(m.blocks) - 1
	}
	if len(m.blocks[i]) != m.blockSize {
		return nil, fmt.Errorf("mock block %d has %d samples, want %d", i, len(m.blocks[i]), m.blockSize)
	}
	return m.blocks[i], nil
}

// Reads returns how many times Read was called.
func (m *MockTap) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Close marks the tap closed.
func (m *MockTap) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockTap) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
