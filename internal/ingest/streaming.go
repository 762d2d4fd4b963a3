package ingest

// streaming.go provides io.Reader wrappers that clean up uploaded text
// before CSV parsing:
//
//   - bomSkippingReader removes the UTF-8 BOM (0xEF 0xBB 0xBF) that
//     Windows tools prepend to exported files
//   - utf8SanitizingReader replaces invalid UTF-8 bytes with '?'
//
// Both operate in constant memory regardless of file size.

import (
	"io"
	"unicode/utf8"
)

const sanitizeChunkSize = 4096

// wrapTextStream applies BOM skipping and UTF-8 sanitization in the
// required order.
func wrapTextStream(r io.Reader) io.Reader {
	return newUTF8SanitizingReader(newBOMSkippingReader(r))
}

// bomSkippingReader skips a leading UTF-8 byte order mark, if present.
type bomSkippingReader struct {
	src     io.Reader
	checked bool
	held    []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{src: r}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		var head [3]byte
		n, err := io.ReadFull(r.src, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n > 0 {
			if !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
				r.held = append(r.held, head[:n]...)
			}
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(r.held) > 0 {
		n := copy(p, r.held)
		r.held = r.held[n:]
		return n, nil
	}
	return r.src.Read(p)
}

// utf8SanitizingReader replaces invalid UTF-8 sequences with '?' on the
// fly. Incomplete multi-byte sequences at a chunk boundary are held
// back until the next read completes them.
type utf8SanitizingReader struct {
	src     io.Reader
	out     []byte
	pending []byte
	srcErr  error
}

func newUTF8SanitizingReader(r io.Reader) *utf8SanitizingReader {
	return &utf8SanitizingReader{src: r}
}

func (r *utf8SanitizingReader) Read(p []byte) (int, error) {
	for len(r.out) == 0 {
		if r.srcErr != nil {
			return 0, r.srcErr
		}
		r.fill()
	}
	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

// fill reads one chunk from the source and sanitizes it into r.out.
func (r *utf8SanitizingReader) fill() {
	buf := make([]byte, sanitizeChunkSize)
	n, err := r.src.Read(buf)

	data := buf[:n]
	if len(r.pending) > 0 {
		data = append(r.pending, data...)
		r.pending = nil
	}

	atEOF := err != nil
	if !atEOF {
		// Hold back a trailing sequence that may continue in the
		// next chunk.
		if trail := incompleteTrailingLen(data); trail > 0 {
			r.pending = append(r.pending, data[len(data)-trail:]...)
			data = data[:len(data)-trail]
		}
	}

	r.out = sanitizeBytes(data)
	if err != nil {
		r.srcErr = err
	}
}

// sanitizeBytes replaces every invalid UTF-8 byte with '?'.
func sanitizeBytes(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); {
		ru, size := utf8.DecodeRune(data[i:])
		if ru == utf8.RuneError && size == 1 {
			out = append(out, '?')
			i++
			continue
		}
		out = append(out, data[i:i+size]...)
		i += size
	}
	return out
}

// incompleteTrailingLen returns how many bytes at the end of data form
// the start of a multi-byte sequence that is not yet complete.
func incompleteTrailingLen(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b&0xC0 == 0x80 {
			continue // continuation byte, keep looking for the lead
		}
		if b >= 0xC0 && expectedRuneLen(b) > i {
			return i
		}
		return 0
	}
	return 0
}

func expectedRuneLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
