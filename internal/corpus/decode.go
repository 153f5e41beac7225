package corpus

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText converts raw file bytes to text without failing on bad input.
//
// A UTF-8 or UTF-16 byte order mark selects the encoding; everything else is
// decoded as UTF-8 with invalid sequences replaced by U+FFFD.
func decodeText(b []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
