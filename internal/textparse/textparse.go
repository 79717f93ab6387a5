// Package textparse holds the small parsers used on kernel counter files:
// whitespace separated integers, "Key: value unit" tables and whole-file
// reads into a reusable buffer.
package textparse

import (
	"io"
	"strings"
)

// GrowStep is the increment by which ReadWhole enlarges its buffer.
const GrowStep = 2048

// ReadWhole reads r until end of stream into *buf, growing it by GrowStep
// whenever it fills. The buffer keeps its capacity across calls so one scratch
// buffer can serve every tick. A read returning no bytes and no error is
// treated as end of stream.
func ReadWhole(r io.Reader, buf *[]byte) (int, error) {
	b := (*buf)[:cap(*buf)]
	n := 0
	for {
		if n == len(b) {
			b = append(b, make([]byte, GrowStep)...)
			b = b[:cap(b)]
		}

		m, err := r.Read(b[n:])
		n += m
		if err == io.EOF || (m == 0 && err == nil) {
			break
		}
		if err != nil {
			*buf = b[:n]
			return n, err
		}
	}

	*buf = b[:n]

	return n, nil
}

// Atoi parses a leading decimal integer the way C's atoi does: leading
// whitespace is skipped, an optional sign is accepted and parsing stops at the
// first non-digit. Input without digits yields 0.
func Atoi(s string) int64 {
	v, _ := scanInt(s, 0)
	return v
}

// ParseInts returns the consecutive integer tokens of s. Tokens are separated
// by any amount of whitespace; scanning stops at the first token that is not
// an integer.
func ParseInts(s string) []int64 {
	var out []int64
	i := 0
	for {
		i = skipSpace(s, i)
		if i == len(s) {
			return out
		}

		v, end := scanInt(s, i)
		if end == i || (end < len(s) && !isSpace(s[end])) {
			return out
		}

		out = append(out, v)
		i = end
	}
}

// ParseKeyValueTable parses lines of the form "Key: value unit" into a map.
// The value is the first integer after the colon; unit suffixes are ignored
// and lines without a colon or a number are skipped.
func ParseKeyValueTable(s string) map[string]int64 {
	table := make(map[string]int64)
	for len(s) > 0 {
		var line string
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			line, s = s[:nl], s[nl+1:]
		} else {
			line, s = s, ""
		}

		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}

		start := skipSpace(line, colon+1)
		v, end := scanInt(line, start)
		if end == start {
			continue
		}

		table[strings.TrimSpace(line[:colon])] = v
	}

	return table
}

// scanInt parses an optionally signed integer starting at s[i:] after
// skipping whitespace. It returns the value and the index one past the last
// digit, or i itself when there is no number.
func scanInt(s string, i int) (int64, int) {
	start := i
	i = skipSpace(s, i)

	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}

	digits := i
	var v int64
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		v = v*10 + int64(s[i]-'0')
		i++
	}
	if i == digits {
		return 0, start
	}

	if neg {
		v = -v
	}

	return v, i
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
