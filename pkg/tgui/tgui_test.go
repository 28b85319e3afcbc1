package tgui

import "testing"

func TestTruncRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"héllo", 3, "hé…"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := TruncRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("TruncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestLinesSkipsBlank(t *testing.T) {
	got := Lines(B("t"), "", Esc("a<b"), " ")
	if want := H("<b>t</b>\na&lt;b"); got != want {
		t.Fatalf("Lines = %q, want %q", got, want)
	}
}
