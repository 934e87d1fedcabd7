package input

import (
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDevices = `I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
H: Handlers=sysrq kbd event3 leds
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe

I: Bus=0003 Vendor=046d Product=c52b Version=0111
N: Name="Logitech USB Receiver"
H: Handlers=mouse0 event5
B: KEY=ffff0000 0 0 0 0

I: Bus=0019 Vendor=0000 Product=0001 Version=0000
N: Name="Power Button"
H: Handlers=event0
B: KEY=10000000000000 0
`

func TestParseDevices(t *testing.T) {
	devices, err := ParseDevices(strings.NewReader(sampleDevices))
	require.NoError(t, err)
	require.Len(t, devices, 2)

	assert.Equal(t, Device{Name: "AT Translated Set 2 keyboard", Path: "/dev/input/event3", Keyboard: true}, devices[0])
	assert.Equal(t, Device{Name: "Logitech USB Receiver", Path: "/dev/input/event5", Pointer: true}, devices[1])
}

func encodeEvent(timevalSize int, typ, code uint16, value int32) []byte {
	buf := make([]byte, timevalSize+8)
	binary.NativeEndian.PutUint16(buf[timevalSize:], typ)
	binary.NativeEndian.PutUint16(buf[timevalSize+2:], code)
	binary.NativeEndian.PutUint32(buf[timevalSize+4:], uint32(value))
	return buf
}

func TestDecodeEvent(t *testing.T) {
	for _, tv := range []int{8, 16} {
		ev, ok := decodeEvent(encodeEvent(tv, evKey, 30, keyPressed), tv)
		require.True(t, ok)
		assert.Equal(t, event{Type: evKey, Code: 30, Value: keyPressed}, ev)
	}

	_, ok := decodeEvent(make([]byte, 10), 16)
	assert.False(t, ok, "short buffer must not decode")
}

func TestDispatch(t *testing.T) {
	var presses, releases, keys int
	h := Handlers{
		OnClick: func(pressed bool) {
			if pressed {
				presses++
			} else {
				releases++
			}
		},
		OnKeyPress: func() { keys++ },
	}

	events := []event{
		{Type: evKey, Code: btnMouse, Value: keyPressed},
		{Type: evKey, Code: btnMouse, Value: keyReleased},
		{Type: evKey, Code: btnMouse + 1, Value: keyPressed},
		{Type: evKey, Code: 30, Value: keyPressed},
		{Type: evKey, Code: 30, Value: 2}, // auto-repeat
		{Type: evKey, Code: 30, Value: keyReleased},
		{Type: evKey, Code: 0x14a, Value: keyPressed}, // BTN_TOUCH
		{Type: 0x02, Code: 0, Value: 5},               // EV_REL motion
	}
	for _, ev := range events {
		dispatch(ev, h)
	}

	assert.Equal(t, 2, presses)
	assert.Equal(t, 1, releases)
	assert.Equal(t, 1, keys)
}

func TestDispatch_NilHandlers(t *testing.T) {
	assert.NotPanics(t, func() {
		dispatch(event{Type: evKey, Code: btnMouse, Value: keyPressed}, Handlers{})
		dispatch(event{Type: evKey, Code: 30, Value: keyPressed}, Handlers{})
	})
}

func TestSimulated(t *testing.T) {
	s := NewSimulated()
	var clicks, keys int

	s.Click()
	s.KeyPress()
	assert.False(t, s.Registered())

	require.NoError(t, s.Register(context.Background(), Handlers{
		OnClick: func(pressed bool) {
			if pressed {
				clicks++
			}
		},
		OnKeyPress: func() { keys++ },
	}))
	assert.True(t, s.Registered())

	s.Click()
	s.Click()
	s.KeyPress()

	require.NoError(t, s.Unregister())
	require.NoError(t, s.Unregister())
	s.Click()

	assert.Equal(t, 2, clicks)
	assert.Equal(t, 1, keys)
}

func TestEvdev_MissingDevice(t *testing.T) {
	e := NewEvdev([]string{"/nonexistent/event99"}, nil)

	err := e.Register(context.Background(), Handlers{})
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.NoError(t, e.Unregister())
}
