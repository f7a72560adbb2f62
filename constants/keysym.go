package constants

import "fmt"

// X11 keysym values for the symbolic key names used in scenario tables.
// Names follow the vncdotool convention so existing sequences keep working.
var KEYSYM_MAP = map[string]uint32{
	"space":  0x0020,
	"bsp":    0xff08,
	"tab":    0xff09,
	"return": 0xff0d,
	"enter":  0xff0d,
	"esc":    0xff1b,
	"home":   0xff50,
	"left":   0xff51,
	"up":     0xff52,
	"right":  0xff53,
	"down":   0xff54,
	"pgup":   0xff55,
	"pgdn":   0xff56,
	"end":    0xff57,
	"ins":    0xff63,
	"del":    0xffff,
	"f1":     0xffbe,
	"f2":     0xffbf,
	"f3":     0xffc0,
	"f4":     0xffc1,
	"f5":     0xffc2,
	"f6":     0xffc3,
	"f7":     0xffc4,
	"f8":     0xffc5,
	"f9":     0xffc6,
	"f10":    0xffc7,
	"f11":    0xffc8,
	"f12":    0xffc9,
}

// Keysym returns the X11 keysym for a symbolic key name. Single printable
// ASCII characters map to their codepoint, everything else must be in
// KEYSYM_MAP.
func Keysym(name string) (uint32, error) {
	if sym, ok := KEYSYM_MAP[name]; ok {
		return sym, nil
	}
	if len(name) == 1 && name[0] >= 0x20 && name[0] < 0x7f {
		return uint32(name[0]), nil
	}
	return 0, fmt.Errorf("unknown key name: %q", name)
}
