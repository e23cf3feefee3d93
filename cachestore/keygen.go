package cachestore

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// Descriptor addresses a cache entry. Two descriptors are equivalent for
// lookup purposes iff method and URL match; header variance is ignored.
type Descriptor struct {
	Method string
	URL    string
}

// Key returns a stable, file-safe key for the descriptor.
func (d Descriptor) Key() string {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = "GET"
	}
	key := method + "_" + sanitizeForFilename(d.URL)
	// Hash very long keys to stay under filesystem name limits.
	if len(key) > 200 {
		hash := md5.Sum([]byte(method + " " + d.URL))
		return fmt.Sprintf("%s_hash_%x", method, hash)
	}
	return key
}

// sanitizeForFilename makes a string safe for use as a filename.
func sanitizeForFilename(s string) string {
	replacements := map[string]string{
		"/":  "_",
		"\\": "_",
		":":  "_",
		"*":  "_",
		"?":  "_",
		"\"": "_",
		"<":  "_",
		">":  "_",
		"|":  "_",
		"#":  "_",
		"&":  "_",
		"=":  "_",
		" ":  "_",
	}

	result := s
	for old, repl := range replacements {
		result = strings.ReplaceAll(result, old, repl)
	}
	return result
}
