package signal

import "strings"

// Handedness is the detector's left/right label for a hand, when it provides one.
// Control assignment never depends on it: the first reported hand drives volume
// and the second drives EQ regardless of label.
type Handedness int

const (
	HandUnknown Handedness = iota
	HandLeft
	HandRight
)

// ParseHandedness converts a detector label such as "Left" or "right".
func ParseHandedness(label string) Handedness {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "left":
		return HandLeft
	case "right":
		return HandRight
	default:
		return HandUnknown
	}
}

func (h Handedness) String() string {
	switch h {
	case HandLeft:
		return "left"
	case HandRight:
		return "right"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Handedness) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Handedness) UnmarshalText(b []byte) error {
	*h = ParseHandedness(string(b))
	return nil
}
