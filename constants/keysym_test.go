package constants

import "testing"

func TestKeysymNamedKeys(t *testing.T) {
	cases := map[string]uint32{
		"left":  0xff51,
		"up":    0xff52,
		"pgup":  0xff55,
		"pgdn":  0xff56,
		"space": 0x0020,
		"f1":    0xffbe,
	}
	for name, want := range cases {
		got, err := Keysym(name)
		if err != nil {
			t.Errorf("Keysym(%q) returned error: %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("Keysym(%q) = %#x, want %#x", name, got, want)
		}
	}
}

func TestKeysymSingleCharacters(t *testing.T) {
	for _, name := range []string{"m", "l", "a", "0", "9"} {
		got, err := Keysym(name)
		if err != nil {
			t.Errorf("Keysym(%q) returned error: %v", name, err)
			continue
		}
		if got != uint32(name[0]) {
			t.Errorf("Keysym(%q) = %#x, want %#x", name, got, uint32(name[0]))
		}
	}
}

func TestKeysymUnknown(t *testing.T) {
	for _, name := range []string{"", "nosuchkey", "wait l", "\x01"} {
		if _, err := Keysym(name); err == nil {
			t.Errorf("Keysym(%q) should have failed", name)
		}
	}
}
