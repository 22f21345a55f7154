package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDevice(t *testing.T) {
	devices := []DeviceInfo{
		{Name: "Speakers", MaxInputChannels: 0},
		{Name: "Microphone Array", MaxInputChannels: 2},
		{Name: "Stereo Mix (Realtek Audio)", MaxInputChannels: 2},
		{Name: "Stereo Mix Output", MaxInputChannels: 0},
	}

	tests := []struct {
		name    string
		device  string
		hint    string
		want    int
		wantErr bool
	}{
		{name: "loopback hint", hint: "Stereo Mix", want: 2},
		{name: "explicit name wins", device: "Microphone Array", hint: "Stereo Mix", want: 1},
		{name: "explicit name without inputs", device: "Speakers", wantErr: true},
		{name: "unknown explicit name", device: "USB Interface", wantErr: true},
		{name: "hint not found falls back to default", hint: "Loopback", want: -1},
		{name: "no hint uses default", want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectDevice(devices, tt.device, tt.hint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, float64(44100), cfg.SampleRate)
	assert.Equal(t, 1024, cfg.BlockSize)
	assert.Equal(t, "Stereo Mix", cfg.LoopbackHint)
	assert.Empty(t, cfg.Device)
}

func TestMockTap(t *testing.T) {
	a := []int16{1, 2, 3, 4}
	b := []int16{5, 6, 7, 8}
	tap := NewMockTap(4, a, b)

	var _ Tap = tap

	block, err := tap.Read()
	require.NoError(t, err)
	assert.Equal(t, a, block)

	block, err = tap.Read()
	require.NoError(t, err)
	assert.Equal(t, b, block)

	// exhausted: last block repeats
	block, err = tap.Read()
	require.NoError(t, err)
	assert.Equal(t, b, block)
	assert.Equal(t, 3, tap.Reads())

	require.NoError(t, tap.Close())
	assert.True(t, tap.Closed())
	_, err = tap.Read()
	assert.ErrorIs(t, err, ErrTapClosed)
}

func TestMockTap_FailAt(t *testing.T) {
	overflow := errors.New("input overflowed")
	tap := NewMockTap(8)
	tap.FailAt(1, overflow)

	block, err := tap.Read()
	require.NoError(t, err)
	assert.Equal(t, make([]int16, 8), block)

	_, err = tap.Read()
	assert.ErrorIs(t, err, overflow)

	// the tap keeps working after a transient failure
	_, err = tap.Read()
	assert.NoError(t, err)
}

func TestMockTap_WrongBlockSize(t *testing.T) {
	tap := NewMockTap(4, []int16{1, 2})

	_, err := tap.Read()
	assert.Error(t, err)
}
