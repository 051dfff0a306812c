package hash

import (
	"strings"
	"testing"
)

func TestSHA256(t *testing.T) {
	tests := []struct {
		input []byte
		want  string
	}{
		{
			[]byte("hello"),
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
		{
			[]byte(""),
			"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := SHA256(tt.input)
			if got != tt.want {
				t.Errorf("SHA256(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestSHA256Short(t *testing.T) {
	hash := SHA256([]byte("hello"))

	tests := []struct {
		n    int
		want string
	}{
		{8, hash[:8]},
		{16, hash[:16]},
		{64, hash},  // full hash
		{100, hash}, // exceeds length, returns full
	}

	for _, tt := range tests {
		got := SHA256Short([]byte("hello"), tt.n)
		if got != tt.want {
			t.Errorf("SHA256Short(hello, %d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestEventID(t *testing.T) {
	a := EventID("eval.completed", "covers80", 1000)
	b := EventID("eval.completed", "covers80", 1000)
	c := EventID("eval.completed", "covers80", 1001)

	if a != b {
		t.Errorf("EventID should be deterministic: %s != %s", a, b)
	}
	if a == c {
		t.Error("EventID should change with timestamp")
	}
	if len(a) != 16 {
		t.Errorf("EventID length = %d, want 16", len(a))
	}
}

func TestCacheKey(t *testing.T) {
	key := CacheKey("cover:wv:", "classical piano music")

	if !strings.HasPrefix(key, "cover:wv:") {
		t.Errorf("CacheKey = %s, want cover:wv: prefix", key)
	}
	if key != CacheKey("cover:wv:", "classical piano music") {
		t.Error("CacheKey should be deterministic")
	}
	if key == CacheKey("cover:wv:", "other text") {
		t.Error("CacheKey should differ for different text")
	}
}
