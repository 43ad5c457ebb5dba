// Package encoding decodes free-text fields embedded in mesh files.
//
// Binary STL headers and PLY comments carry whatever the exporter wrote.
// Most exporters write ASCII or UTF-8, but older CAD tools write
// Windows-1252, which is not valid UTF-8.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ToUTF8 returns data as UTF-8. Valid UTF-8 is returned unchanged; anything
// else is decoded as Windows-1252.
func ToUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	result, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		// Return as-is if decoding fails
		return string(data)
	}
	return string(result)
}

// FixedString converts a fixed-size, null-terminated text field to a trimmed
// UTF-8 string. Bytes after the first null are ignored.
func FixedString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return strings.TrimSpace(ToUTF8(data))
}
