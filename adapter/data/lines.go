package data

import (
	"bufio"
	"io"
)

// MaxLineSize is the longest JSON line, in bytes, read from a document
// stream.
const MaxLineSize = 16 * 1024 * 1024

// NewLineScanner returns a scanner splitting r in lines of up to
// [MaxLineSize] bytes.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(nil, MaxLineSize)
	return lines
}
