// Package identity derives the stable project identifier that doubles as the
// PM2 process name.
package identity

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	// IDLength is the fixed length of every generated id.
	IDLength = 16

	prefixLength = 6
	separator    = "|"
)

// Generate returns a deterministic 16 character id for a project name and
// path. The hash runs over UTF-16 code units with signed 32-bit wraparound.
func Generate(name, path string) string {
	return format(sanitizePrefix(name), hash(name+separator+path))
}

// format zero-pads the base-36 hash on the left so that distinct hashes
// never share an id. A 6 character prefix, the dash and the longest hash
// (6 digits) always fit in IDLength.
func format(prefix string, h int32) string {
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	hashPart := strconv.FormatInt(abs, 36)

	head := ""
	if prefix != "" {
		head = prefix + "-"
	}
	if pad := IDLength - len(head) - len(hashPart); pad > 0 {
		hashPart = strings.Repeat("0", pad) + hashPart
	}
	id := head + hashPart
	return id[:IDLength]
}

func hash(s string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	return h
}

func sanitizePrefix(name string) string {
	var b strings.Builder
	for i := 0; i < len(name) && b.Len() < prefixLength; i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}
