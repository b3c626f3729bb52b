package http

import (
	"strconv"
	"strings"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// userKey scopes a response cache key to one user so writes can drop every
// entry of that user with a single prefix delete.
func userKey(userID int64, parts ...string) string {
	var b strings.Builder
	b.WriteString(userPrefix(userID))
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

func userPrefix(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":"
}
