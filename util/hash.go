package util

import "unicode/utf16"

// Hash is the rolling h*31+c string hash over UTF-16 code units, wrapped to an
// unsigned 32-bit integer. It is used to derive storage keys from workflow
// names and is not collision resistant.
func Hash(s string) uint32 {
	var hash uint32
	for _, code := range utf16.Encode([]rune(s)) {
		hash = (hash << 5) - hash + uint32(code)
	}
	return hash
}
