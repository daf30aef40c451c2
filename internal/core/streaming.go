package core

// streaming.go wraps CSV input so encoding/csv never sees a byte-order mark
// or invalid UTF-8. Spreadsheets exported on Windows commonly carry both.

import (
	"bufio"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WrapForStreaming skips a leading UTF-8 BOM and replaces invalid UTF-8
// sequences with '?'. total is the input size, used only to size the buffer.
func WrapForStreaming(r io.Reader, total int64) io.Reader {
	size := 64 * 1024
	if total > 0 && total < int64(size) {
		size = int(total) + utf8.UTFMax
	}
	br := bufio.NewReaderSize(r, size)

	if head, err := br.Peek(len(utf8BOM)); err == nil && string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return &utf8Sanitizer{src: br}
}

// utf8Sanitizer copies runes from src, writing '?' for each invalid byte.
type utf8Sanitizer struct {
	src *bufio.Reader
	buf [utf8.UTFMax]byte
	// pending holds encoded bytes of a rune that did not fit in p.
	pending []byte
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	n := copy(p, s.pending)
	s.pending = s.pending[n:]

	for n < len(p) {
		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if r == utf8.RuneError && size == 1 {
			r = '?'
		}

		w := utf8.EncodeRune(s.buf[:], r)
		c := copy(p[n:], s.buf[:w])
		n += c
		if c < w {
			s.pending = append(s.pending[:0], s.buf[c:w]...)
			break
		}
	}
	return n, nil
}
