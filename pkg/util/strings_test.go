package util

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"BUY 0.80", 200, "BUY 0.80"},
		{"abcdef", 3, "abc"},
		{"héllo", 2, "hé"},
		{"日本語テキスト", 3, "日本語"},
		{"abc", 0, ""},
	}
	for _, c := range cases {
		got := TruncateRunes(c.in, c.n)
		if got != c.want {
			t.Fatalf("TruncateRunes(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("TruncateRunes(%q, %d) produced invalid utf8", c.in, c.n)
		}
	}
}
