package encoding

import "testing"

func TestToUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ascii", []byte("part 7"), "part 7"},
		{"utf8", []byte("pièce"), "pièce"},
		{"windows-1252", []byte("pi\xe8ce \x80"), "pièce €"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToUTF8(tt.in); got != tt.want {
				t.Errorf("ToUTF8(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFixedString(t *testing.T) {
	field := make([]byte, 80)
	copy(field, "  exported by cad\x00garbage")

	if got := FixedString(field); got != "exported by cad" {
		t.Errorf("expected %q, got %q", "exported by cad", got)
	}
	if got := FixedString(make([]byte, 80)); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
