// Package audio provides the microphone / loopback tap feeding the spectrum overlay.
package audio

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/hashicorp/go-multierror"
)

// Default stream settings.
const (
	DefaultSampleRate   = 44100
	DefaultBlockSize    = 1024
	DefaultLoopbackHint = "Stereo Mix"
)

var (
	// ErrTapClosed is returned when reading from a closed tap.
	ErrTapClosed = errors.New("audio tap is closed")
	// ErrNoInputDevice is returned when neither a loopback nor a default input exists.
	ErrNoInputDevice = errors.New("no audio input device")
)

// Tap delivers fixed-size blocks of mono 16-bit samples.
type Tap interface {
	// Read blocks until the next block is available.
	// The returned slice is only valid until the next call.
	Read() ([]int16, error)
	BlockSize() int
	Close() error
}

// Config holds audio capture settings.
type Config struct {
	SampleRate   float64 `yaml:"sample_rate"`
	BlockSize    int     `yaml:"block_size"`
	Device       string  `yaml:"device"`
	LoopbackHint string  `yaml:"loopback_hint"`
}

// DefaultConfig returns 44.1 kHz mono capture in 1024-sample blocks,
// preferring a "Stereo Mix" loopback device.
func DefaultConfig() Config {
	return Config{
		SampleRate:   DefaultSampleRate,
		BlockSize:    DefaultBlockSize,
		LoopbackHint: DefaultLoopbackHint,
	}
}

// DeviceInfo describes an input device.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// SelectDevice picks the device to capture from. An explicit name wins, then the
// first device whose name contains the loopback hint, then the default input.
// It returns the index into devices, or -1 when the default input should be used.
func SelectDevice(devices []DeviceInfo, name, hint string) (int, error) {
	if name != "" {
		for i, d := range devices {
			if d.Name == name && d.MaxInputChannels > 0 {
				return i, nil
			}
		}
		return -1, fmt.Errorf("input device %q not found", name)
	}
	if hint != "" {
		for i, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(d.Name, hint) {
				return i, nil
			}
		}
	}
	return -1, nil
}

// PortAudioTap captures from a PortAudio input stream.
type PortAudioTap struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	buf    []int16
	device string
	closed bool
}

// OpenPortAudio initializes PortAudio and starts an input stream.
// Terminate is handled by Close, including on every failure path here.
func OpenPortAudio(cfg Config) (_ *PortAudioTap, err error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer func() {
		if err != nil {
			portaudio.Terminate()
		}
	}()

	dev, err := pickDevice(cfg)
	if err != nil {
		return nil, err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = cfg.SampleRate
	params.FramesPerBuffer = cfg.BlockSize

	buf := make([]int16, cfg.BlockSize)
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream on %q: %w", dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream on %q: %w", dev.Name, err)
	}

	return &PortAudioTap{
		stream: stream,
		buf:    buf,
		device: dev.Name,
	}, nil
}

func pickDevice(cfg Config) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	infos := make([]DeviceInfo, len(devices))
	for i, d := range devices {
		infos[i] = DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
	}

	idx, err := SelectDevice(infos, cfg.Device, cfg.LoopbackHint)
	if err != nil {
		return nil, err
	}
	if idx >= 0 {
		return devices[idx], nil
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}
	return dev, nil
}

// ListDevices returns the input-capable devices known to PortAudio.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	var result []DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels == 0 {
			continue
		}
		result = append(result, DeviceInfo{
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return result, nil
}

// Device returns the name of the device being captured.
func (t *PortAudioTap) Device() string {
	return t.device
}

// BlockSize returns the number of samples per block.
func (t *PortAudioTap) BlockSize() int {
	return len(t.buf)
}

// Read reads the next block. Overflow and device errors are returned so the
// caller can substitute silence for this block; the stream stays usable.
func (t *PortAudioTap) Read() ([]int16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTapClosed
	}
	if err := t.stream.Read(); err != nil {
		return nil, fmt.Errorf("read audio block: %w", err)
	}
	return t.buf, nil
}

// Close stops the stream and terminates PortAudio. Safe to call more than once.
func (t *PortAudioTap) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var result *multierror.Error
	if err := t.stream.Stop(); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop stream: %w", err))
	}
	if err := t.stream.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("terminate portaudio: %w", err))
	}
	return result.ErrorOrNil()
}
