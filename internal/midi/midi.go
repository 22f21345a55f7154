// Package midi maps control values to MIDI control-change messages and sends them to an output port.
package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/ayusman/mudra/internal/signal"
)

// Controller numbers.
const (
	CCVolume = 7
	CCEQ     = 10
	CCSpeed  = 22
)

// DefaultPortName is the virtual port the DJ software listens on.
const DefaultPortName = "visualDj 1"

var (
	// ErrPortNotFound is returned when no output port matches the configured name.
	ErrPortNotFound = errors.New("midi output port not found")
	// ErrSinkClosed is returned when sending on a closed sink.
	ErrSinkClosed = errors.New("midi sink is closed")
)

// Sink consumes one set of control values per frame.
type Sink interface {
	Send(c signal.Controls) error
	Close() error
}

// Config holds MIDI output settings.
type Config struct {
	Port           string `yaml:"port"`
	Channel        uint8  `yaml:"channel"`
	IdleVolumeZero bool   `yaml:"idle_volume_zero"`
}

// DefaultConfig returns the default output settings.
func DefaultConfig() Config {
	return Config{
		Port:    DefaultPortName,
		Channel: 0,
	}
}

// Messages returns the control-change messages for one frame.
//
// Volume follows the first hand and speed is always included once a hand is
// present; EQ is only sent when a second hand is seen. With no hands nothing
// is sent unless idleVolumeZero is set, which sends volume 0 and the held speed.
func Messages(c signal.Controls, channel uint8, idleVolumeZero bool) []gomidi.Message {
	channel &= 0x0F

	if c.Hands == 0 {
		if !idleVolumeZero {
			return nil
		}
		return []gomidi.Message{
			gomidi.ControlChange(channel, CCVolume, 0),
			gomidi.ControlChange(channel, CCSpeed, value(c.Speed)),
		}
	}

	msgs := make([]gomidi.Message, 0, 3)
	msgs = append(msgs, gomidi.ControlChange(channel, CCVolume, value(c.Volume)))
	if c.EQPresent {
		msgs = append(msgs, gomidi.ControlChange(channel, CCEQ, value(c.EQ)))
	}
	msgs = append(msgs, gomidi.ControlChange(channel, CCSpeed, value(c.Speed)))
	return msgs
}

func value(v int) uint8 {
	return uint8(signal.Clamp(v))
}

// ResolvePort returns the index of the port matching want: an exact name match
// first, then the first case-insensitive substring match.
func ResolvePort(names []string, want string) (int, error) {
	if want == "" {
		return -1, fmt.Errorf("%w: empty port name", ErrPortNotFound)
	}
	for i, n := range names {
		if n == want {
			return i, nil
		}
	}
	lw := strings.ToLower(want)
	for i, n := range names {
		if strings.Contains(strings.ToLower(n), lw) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrPortNotFound, want)
}

// PortNames lists the output ports known to the driver.
func PortNames() []string {
	return portNames(gomidi.GetOutPorts())
}

func portNames(ports []drivers.Out) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

// FindPort resolves the configured name against the driver's output ports.
func FindPort(name string) (drivers.Out, error) {
	ports := gomidi.GetOutPorts()
	idx, err := ResolvePort(portNames(ports), name)
	if err != nil {
		return nil, err
	}
	return ports[idx], nil
}

// PortSink sends control changes to a MIDI output port.
type PortSink struct {
	mu             sync.Mutex
	out            drivers.Out
	channel        uint8
	idleVolumeZero bool
	closed         bool
	sent           int
}

// OpenPort resolves and opens the configured output port.
func OpenPort(cfg Config) (*PortSink, error) {
	out, err := FindPort(cfg.Port)
	if err != nil {
		return nil, err
	}
	return NewPortSink(out, cfg)
}

// NewPortSink wraps an output port, opening it if needed.
func NewPortSink(out drivers.Out, cfg Config) (*PortSink, error) {
	if !out.IsOpen() {
		if err := out.Open(); err != nil {
			return nil, fmt.Errorf("open midi port %q: %w", out.String(), err)
		}
	}
	return &PortSink{
		out:            out,
		channel:        cfg.Channel,
		idleVolumeZero: cfg.IdleVolumeZero,
	}, nil
}

// Port returns the name of the underlying port.
func (s *PortSink) Port() string {
	return s.out.String()
}

// Sent returns the number of messages written so far.
func (s *PortSink) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Send writes the messages for c. It stops at the first failed write.
func (s *PortSink) Send(c signal.Controls) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	for _, msg := range Messages(c, s.channel, s.idleVolumeZero) {
		if err := s.out.Send(msg); err != nil {
			return fmt.Errorf("send %s: %w", msg, err)
		}
		s.sent++
	}
	return nil
}

// Close closes the port. Safe to call more than once.
func (s *PortSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.out.Close(); err != nil {
		return fmt.Errorf("close midi port %q: %w", s.out.String(), err)
	}
	return nil
}
