package input

import (
	"bufio"
	"encoding/binary"
	"io"
	"strings"
)

// Device is an input device listed in /proc/bus/input/devices.
type Device struct {
	Name     string
	Path     string
	Keyboard bool
	Pointer  bool
}

// ParseDevices reads the /proc/bus/input/devices format and returns every
// device with a keyboard or mouse handler and an event node.
func ParseDevices(r io.Reader) ([]Device, error) {
	var devices []Device
	var cur Device

	flush := func() {
		if cur.Path != "" && (cur.Keyboard || cur.Pointer) {
			devices = append(devices, cur)
		}
		cur = Device{}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			cur.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, h := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				switch {
				case h == "kbd":
					cur.Keyboard = true
				case strings.HasPrefix(h, "mouse"):
					cur.Pointer = true
				case strings.HasPrefix(h, "event"):
					cur.Path = "/dev/input/" + h
				}
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

// Linux input event constants (linux/input-event-codes.h).
const (
	evKey = 0x01

	keyReleased = 0
	keyPressed  = 1

	// Key codes below btnMisc are keyboard keys.
	btnMisc = 0x100
	// BTN_MOUSE through BTN_TASK are pointer buttons.
	btnMouse = 0x110
	btnTask  = 0x117
)

// event is the type/code/value tail of struct input_event. The leading
// timeval is skipped since its width depends on the architecture.
type event struct {
	Type  uint16
	Code  uint16
	Value int32
}

// decodeEvent parses one input_event record whose timeval occupies the
// first timevalSize bytes.
func decodeEvent(buf []byte, timevalSize int) (event, bool) {
	if len(buf) < timevalSize+8 {
		return event{}, false
	}
	tail := buf[timevalSize:]
	return event{
		Type:  binary.NativeEndian.Uint16(tail[0:2]),
		Code:  binary.NativeEndian.Uint16(tail[2:4]),
		Value: int32(binary.NativeEndian.Uint32(tail[4:8])),
	}, true
}

// dispatch forwards an event to the matching handler. Auto-repeat
// (value 2) is not a new key press.
func dispatch(ev event, h Handlers) {
	if ev.Type != evKey {
		return
	}

	switch {
	case ev.Code >= btnMouse && ev.Code <= btnTask:
		if ev.Value == keyPressed || ev.Value == keyReleased {
			h.click(ev.Value == keyPressed)
		}
	case ev.Code > 0 && ev.Code < btnMisc:
		if ev.Value == keyPressed {
			h.keyPress()
		}
	}
}
