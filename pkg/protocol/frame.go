package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/grovetools/lombridge/errors"
)

const readChunk = 8192

// FrameReader splits a byte stream into JSON values. A frame ends at the first
// point where the accumulated bytes parse as one complete value; there is no
// length prefix. Whitespace between values, including the "\n" liveness
// probe, is skipped. Bytes following a complete value stay buffered for the
// next call.
type FrameReader struct {
	r        io.Reader
	buf      []byte
	maxBytes int
	chunk    []byte
}

// NewFrameReader wraps r. maxBytes bounds a single frame; zero means unbounded.
func NewFrameReader(r io.Reader, maxBytes int) *FrameReader {
	return &FrameReader{
		r:        r,
		maxBytes: maxBytes,
		chunk:    make([]byte, readChunk),
	}
}

// Buffered returns the number of bytes held for the next frame.
func (f *FrameReader) Buffered() int { return len(f.buf) }

// Next returns the next complete JSON value.
//
// A malformed value yields a PROTOCOL_ERROR and the buffer is discarded, so
// the caller may keep reading. io.EOF is returned when the stream ends on a
// frame boundary, io.ErrUnexpectedEOF when it ends mid-value.
func (f *FrameReader) Next() (json.RawMessage, error) {
	for {
		frame, err := f.extract()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}

		if f.maxBytes > 0 && len(f.buf) > f.maxBytes {
			size := len(f.buf)
			f.buf = nil
			return nil, errors.Protocol(fmt.Sprintf("frame exceeds %d bytes", f.maxBytes), nil).
				WithDetail("size", size)
		}

		n, readErr := f.r.Read(f.chunk)
		if n > 0 {
			f.buf = append(f.buf, f.chunk[:n]...)
			continue
		}
		if readErr != nil {
			if readErr == io.EOF && len(bytes.TrimSpace(f.buf)) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, readErr
		}
	}
}

// extract pulls one complete value off the front of the buffer, or returns
// nil when more bytes are needed.
func (f *FrameReader) extract() (json.RawMessage, error) {
	trimmed := bytes.TrimLeft(f.buf, " \t\r\n")
	if len(trimmed) == 0 {
		f.buf = f.buf[:0]
		return nil, nil
	}
	skipped := len(f.buf) - len(trimmed)

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var raw json.RawMessage
	err := dec.Decode(&raw)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		return nil, nil
	default:
		f.buf = nil
		return nil, errors.Protocol("malformed JSON frame", err)
	}

	consumed := skipped + int(dec.InputOffset())
	frame := make(json.RawMessage, len(raw))
	copy(frame, raw)
	f.buf = append(f.buf[:0], f.buf[consumed:]...)
	return frame, nil
}

// FrameWriter serializes values onto a stream, one write per frame.
type FrameWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFrameWriter wraps w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// Write encodes v as a single JSON value.
func (fw *FrameWriter) Write(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Protocol("cannot encode frame", err)
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	_, err = fw.w.Write(data)
	return err
}

// WriteResponse writes resp, falling back to an error response when its
// result cannot be encoded. Only transport errors are returned.
func (fw *FrameWriter) WriteResponse(resp Response) error {
	data := EncodeResponse(resp)
	fw.mu.Lock()
	defer fw.mu.Unlock()
	_, err := fw.w.Write(data)
	return err
}
