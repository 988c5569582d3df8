package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"john.doe@example.com": "joh***@example.com",
		"ab@example.com":       "ab***@example.com",
		"not-an-email":         "***",
	}
	for input, want := range cases {
		if got := MaskEmail(input); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"192.168.1.100": "192.168.*.*",
		"2001:0db8:85a3:0000:0000:8a2e:0370:7334": "2001:0db8:85a3:0000:*:*:*:*",
		"garbage": "***",
	}
	for input, want := range cases {
		if got := MaskIP(input); got != want {
			t.Errorf("MaskIP(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestMaskString(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"abcd":      "***",
		"secret123": "se***23",
	}
	for input, want := range cases {
		if got := MaskString(input); got != want {
			t.Errorf("MaskString(%q) = %q, want %q", input, got, want)
		}
	}
}
