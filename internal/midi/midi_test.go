package midi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/ayusman/mudra/internal/signal"
)

type fakeOut struct {
	name    string
	open    bool
	openErr error
	sendErr error
	sent    [][]byte
	closes  int
}

var _ drivers.Out = (*fakeOut)(nil)

func (f *fakeOut) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeOut) Close() error {
	f.open = false
	f.closes++
	return nil
}

func (f *fakeOut) IsOpen() bool            { return f.open }
func (f *fakeOut) Number() int             { return 0 }
func (f *fakeOut) String() string          { return f.name }
func (f *fakeOut) Underlying() interface{} { return nil }

func (f *fakeOut) Send(data []byte) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func cc(controller, value uint8) []byte {
	return []byte{0xB0, controller, value}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name     string
		controls signal.Controls
		idleZero bool
		want     [][]byte
	}{
		{
			name:     "no hands sends nothing",
			controls: signal.Controls{Speed: 90},
		},
		{
			name:     "no hands with idle volume zero",
			controls: signal.Controls{Speed: 90},
			idleZero: true,
			want:     [][]byte{cc(CCVolume, 0), cc(CCSpeed, 90)},
		},
		{
			name:     "one hand",
			controls: signal.Controls{Hands: 1, Volume: 51, Speed: 127},
			want:     [][]byte{cc(CCVolume, 51), cc(CCSpeed, 127)},
		},
		{
			name:     "two hands add eq",
			controls: signal.Controls{Hands: 2, Volume: 10, EQ: 102, EQPresent: true, Speed: 114},
			want:     [][]byte{cc(CCVolume, 10), cc(CCEQ, 102), cc(CCSpeed, 114)},
		},
		{
			name:     "values are clamped",
			controls: signal.Controls{Hands: 2, Volume: 300, EQ: -4, EQPresent: true, Speed: 128},
			want:     [][]byte{cc(CCVolume, 127), cc(CCEQ, 0), cc(CCSpeed, 127)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := Messages(tt.controls, 0, tt.idleZero)
			require.Len(t, msgs, len(tt.want))
			for i, m := range msgs {
				assert.Equal(t, tt.want[i], []byte(m))
			}
		})
	}
}

func TestMessages_Channel(t *testing.T) {
	msgs := Messages(signal.Controls{Hands: 1, Volume: 5}, 3, false)

	require.NotEmpty(t, msgs)
	var ch, controller, val uint8
	require.True(t, msgs[0].GetControlChange(&ch, &controller, &val))
	assert.Equal(t, uint8(3), ch)
	assert.Equal(t, uint8(CCVolume), controller)
	assert.Equal(t, uint8(5), val)
}

func TestResolvePort(t *testing.T) {
	names := []string{"Midi Through Port-0", "visualDj 10", "visualDj 1", "loopMIDI Port"}

	tests := []struct {
		want    string
		idx     int
		wantErr bool
	}{
		{want: "visualDj 1", idx: 2},
		{want: "VISUALDJ 10", idx: 1},
		{want: "loopmidi", idx: 3},
		{want: "nothing", wantErr: true},
		{want: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			idx, err := ResolvePort(names, tt.want)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPortNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.idx, idx)
		})
	}
}

func TestPortSink(t *testing.T) {
	out := &fakeOut{name: "visualDj 1"}

	sink, err := NewPortSink(out, Config{Channel: 0})
	require.NoError(t, err)
	assert.True(t, out.IsOpen())
	assert.Equal(t, "visualDj 1", sink.Port())

	require.NoError(t, sink.Send(signal.Controls{Speed: 127}))
	assert.Empty(t, out.sent)

	require.NoError(t, sink.Send(signal.Controls{Hands: 2, Volume: 1, EQ: 2, EQPresent: true, Speed: 3}))
	assert.Equal(t, [][]byte{cc(CCVolume, 1), cc(CCEQ, 2), cc(CCSpeed, 3)}, out.sent)
	assert.Equal(t, 3, sink.Sent())

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.Equal(t, 1, out.closes)

	assert.ErrorIs(t, sink.Send(signal.Controls{Hands: 1}), ErrSinkClosed)
}

func TestPortSink_IdleVolumeZero(t *testing.T) {
	out := &fakeOut{name: "p"}
	sink, err := NewPortSink(out, Config{IdleVolumeZero: true})
	require.NoError(t, err)

	require.NoError(t, sink.Send(signal.Controls{Speed: 64}))
	assert.Equal(t, [][]byte{cc(CCVolume, 0), cc(CCSpeed, 64)}, out.sent)
}

func TestPortSink_Errors(t *testing.T) {
	_, err := NewPortSink(&fakeOut{name: "busy", openErr: errors.New("device busy")}, DefaultConfig())
	assert.Error(t, err)

	broken := errors.New("pipe closed")
	sink, err := NewPortSink(&fakeOut{name: "p", sendErr: broken}, DefaultConfig())
	require.NoError(t, err)
	assert.ErrorIs(t, sink.Send(signal.Controls{Hands: 1}), broken)
}

func TestMultiSink(t *testing.T) {
	a := NewMockSink()
	b := NewMockSink()
	failing := errors.New("boom")
	a.SetError(failing)

	multi := MultiSink{a, b}
	var _ Sink = multi

	c := signal.Controls{Hands: 1, Volume: 40, Speed: 127}
	err := multi.Send(c)
	assert.ErrorIs(t, err, failing)
	assert.Equal(t, []signal.Controls{c}, b.Controls(), "later sinks still receive the frame")

	require.NoError(t, multi.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "visualDj 1", cfg.Port)
	assert.Equal(t, uint8(0), cfg.Channel)
	assert.False(t, cfg.IdleVolumeZero)
}

func TestMessageBytes(t *testing.T) {
	// guards the CC encoding the DJ software mapping depends on
	assert.Equal(t, gomidi.Message{0xB0, 7, 64}, gomidi.ControlChange(0, CCVolume, 64))
}
