package core

// streaming.go cleans up uploaded bytes before they reach encoding/csv:
//
//   - BOMSkippingReader drops a leading UTF-8 BOM so the first header is
//     "object", not "\uFEFFobject"
//   - NewlineNormalizer turns CR and CRLF line endings into LF
//   - StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader records how many bytes were consumed, for batch logs
//
// Use WrapForStreaming to apply them in the right order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call peeks three bytes and discards a BOM.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			_, _ = b.r.Discard(len(utf8BOM))
		} else if err != nil && err != io.EOF && len(head) == 0 {
			return 0, err
		}
	}
	return b.r.Read(p)
}

// StreamingUTF8Sanitizer replaces invalid UTF-8 bytes with '?' as data streams through.
// A multi-byte rune split across two reads is held back until it is complete.
type StreamingUTF8Sanitizer struct {
	reader  io.Reader
	pending []byte
}

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) < utf8.UTFMax {
		// Too small to guarantee room for a held-back rune plus progress.
		buf := make([]byte, utf8.UTFMax)
		n, err := s.Read(buf)
		copied := copy(p, buf[:n])
		if copied < n {
			s.pending = append(append([]byte(nil), buf[copied:n]...), s.pending...)
			if err == io.EOF {
				err = nil
			}
		}
		return copied, err
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	atEOF := err == io.EOF
	write := 0
	for read := 0; read < n; {
		c := p[read]
		if c < utf8.RuneSelf {
			p[write] = c
			write++
			read++
			continue
		}
		if !atEOF && !utf8.FullRune(p[read:n]) {
			s.pending = append(s.pending, p[read:n]...)
			break
		}
		r, size := utf8.DecodeRune(p[read:n])
		if r == utf8.RuneError && size == 1 {
			p[write] = '?'
			write++
			read++
			continue
		}
		copy(p[write:], p[read:read+size])
		write += size
		read += size
	}

	if write == 0 && len(s.pending) > 0 && err == nil {
		// Only a partial rune so far; read again rather than report zero bytes.
		return s.Read(p)
	}
	return write, err
}

// NewlineNormalizer rewrites lone CR and CRLF line endings to LF.
// encoding/csv only understands LF and CRLF, so a classic Mac export with
// CR-only endings would otherwise parse as a single header line.
type NewlineNormalizer struct {
	reader io.Reader
	lastCR bool
}

// NewNewlineNormalizer creates a new line ending normalizer.
func NewNewlineNormalizer(r io.Reader) *NewlineNormalizer {
	return &NewlineNormalizer{reader: r}
}

// Read implements io.Reader. The output is never longer than the input,
// so the rewrite happens in place.
func (n *NewlineNormalizer) Read(p []byte) (int, error) {
	for {
		read, err := n.reader.Read(p)
		write := 0
		for _, c := range p[:read] {
			switch {
			case c == '\r':
				p[write] = '\n'
				write++
				n.lastCR = true
				continue
			case c == '\n' && n.lastCR:
				// second half of CRLF, already emitted
			default:
				p[write] = c
				write++
			}
			n.lastCR = false
		}
		if write > 0 || err != nil || read == 0 {
			return write, err
		}
	}
}

// CountingReader tracks bytes read through it.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// WrapForStreaming strips the BOM, normalizes line endings, sanitizes UTF-8
// and counts. The BOM must go first because the sanitizer would otherwise
// pass it through.
func WrapForStreaming(r io.Reader) *CountingReader {
	return &CountingReader{
		reader: NewStreamingUTF8Sanitizer(NewNewlineNormalizer(NewBOMSkippingReader(r))),
	}
}
