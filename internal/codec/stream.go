package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// maxFrameSize bounds the length prefix accepted by Reader.
const maxFrameSize = 64 << 20

// Writer appends varint length-prefixed frames to an io.Writer.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes and appends one frame.
func (w *Writer) Write(f *Frame) error {
	payload := Encode(f)
	w.buf = protowire.AppendVarint(w.buf[:0], uint64(len(payload)))
	w.buf = append(w.buf, payload...)
	if _, err := w.w.Write(w.buf); err != nil {
		return fmt.Errorf("failed to write frame %d: %w", f.Tick, err)
	}
	return nil
}

// Observe lets a Writer be plugged in as a driver observer.
func (w *Writer) Observe(f *Frame) error { return w.Write(f) }

// Flush pushes buffered frames to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

// Reader reads frames written by Writer.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next frame, io.EOF at a clean end of stream and
// io.ErrUnexpectedEOF when the stream stops in the middle of a frame.
func (r *Reader) Next() (*Frame, error) {
	size, err := binary.ReadUvarint(r.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame length: %w", err)
	}
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d: %w", size, maxFrameSize, ErrMalformed)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return Decode(payload)
}
