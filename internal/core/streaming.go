package core

// streaming.go wraps raw import input so encoding/csv never sees a byte order
// mark or invalid UTF-8. Both transforms are streaming: memory use is bounded
// by the read buffer, not the size of the upload.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader that drops a leading UTF-8 byte order mark.
// Spreadsheet exports on Windows add one, and it would otherwise end up
// glued to the first header name.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// UTF8Sanitizer replaces every invalid UTF-8 byte with '?'.
// Multi-byte runes split across reads are carried over to the next chunk.
type UTF8Sanitizer struct {
	src     io.Reader
	chunk   []byte
	pending []byte // incomplete rune from the previous chunk
	out     []byte // sanitized bytes not yet handed to the caller
	err     error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{src: r, chunk: make([]byte, 4096)}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *UTF8Sanitizer) fill() {
	n, err := s.src.Read(s.chunk)
	data := append(s.pending, s.chunk[:n]...)
	s.pending = nil
	s.out = s.out[:0]
	if err != nil {
		s.err = err
	}
	atEOF := err != nil

	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			s.out = append(s.out, data[i])
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(data[i:]) {
			s.pending = append([]byte(nil), data[i:]...)
			return
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			s.out = append(s.out, '?')
		} else {
			s.out = append(s.out, data[i:i+size]...)
		}
		i += size
	}
}

// WrapInput applies BOM skipping then UTF-8 sanitization.
func WrapInput(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(SkipBOM(r))
}
