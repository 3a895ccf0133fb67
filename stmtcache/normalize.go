package stmtcache

import (
	"strings"
	"unicode"

	"github.com/caasmo/litepool/cache"
)

// Normalize returns the cache key of sql: comments are dropped and every
// run of whitespace outside quoted literals and identifiers becomes a single
// space, so that statements differing only in layout share a key. The key is
// never compiled; a statement is always prepared from the caller's text.
func Normalize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	src := []rune(sql)
	var quote rune
	pendingSpace := false
	for i := 0; i < len(src); i++ {
		r := src[i]
		if quote != 0 {
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
			continue
		}

		switch {
		case r == '-' && i+1 < len(src) && src[i+1] == '-':
			// Line comment, up to and including the newline.
			for i < len(src) && src[i] != '\n' {
				i++
			}
			pendingSpace = true
			continue
		case r == '/' && i+1 < len(src) && src[i+1] == '*':
			// Block comment; an unterminated one runs to the end.
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				i++
			}
			i++
			pendingSpace = true
			continue
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		}

		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		switch r {
		case '\'', '"', '`':
			quote = r
		case '[':
			quote = ']'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Blank reports whether sql holds no statement: only whitespace, comments
// and semicolons. Drivers use it to accept the tail left after compiling the
// first statement.
func Blank(sql string) bool {
	return strings.Trim(Normalize(sql), "; ") == ""
}

// Normalizer memoizes Normalize in a cache shared by all sessions. A nil
// Normalizer leaves statements untouched.
type Normalizer struct {
	memo cache.Cache[string, string]
}

// NewNormalizer returns a Normalizer backed by memo. A nil memo normalizes
// every call without caching.
func NewNormalizer(memo cache.Cache[string, string]) *Normalizer {
	return &Normalizer{memo: memo}
}

// Normalize returns the cache key for sql.
func (n *Normalizer) Normalize(sql string) string {
	if n == nil {
		return sql
	}
	if n.memo == nil {
		return Normalize(sql)
	}
	if key, ok := n.memo.Get(sql); ok {
		return key
	}
	key := Normalize(sql)
	n.memo.Set(sql, key, int64(len(sql)+len(key)))
	return key
}
