// Package protocol implements the wire contract: length-prefixed frames
// carrying JSON envelopes. Framing is symmetric; the same codec runs on
// both directions of a connection.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// MaxFrameSize bounds a single payload. Anything larger is a protocol
// violation and fatal to the connection.
const MaxFrameSize = 1 << 20

const lenPrefixSize = 4

var ErrFrameTooLarge = errors.New("frame exceeds max size")

// WriteFrame writes one [u32 length][payload] frame.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return errors.WithStack(ErrFrameTooLarge)
	}
	var prefix [lenPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := w.Write(prefix[:]); err != nil {
		return errors.Wrap(err, "write frame prefix")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "write frame payload")
	}
	return nil
}

// ReadFrame blocks until one complete frame is available on r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [lenPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameSize {
		return nil, errors.WithStack(ErrFrameTooLarge)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Decoder accumulates stream bytes and yields complete frames. It exists
// for callers that receive arbitrary chunks (the WebSocket bridge and
// tests); socket readers use ReadFrame directly.
type Decoder struct {
	buf []byte
}

// Feed appends raw stream bytes.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Next returns the next complete payload, or ok=false when more bytes are
// needed. An oversized prefix returns an error; the buffer is then
// unusable and the connection should be dropped.
func (d *Decoder) Next() (payload []byte, ok bool, err error) {
	if len(d.buf) < lenPrefixSize {
		return nil, false, nil
	}
	n := binary.BigEndian.Uint32(d.buf[:lenPrefixSize])
	if n > MaxFrameSize {
		return nil, false, errors.WithStack(ErrFrameTooLarge)
	}
	total := lenPrefixSize + int(n)
	if len(d.buf) < total {
		return nil, false, nil
	}
	payload = make([]byte, n)
	copy(payload, d.buf[lenPrefixSize:total])
	d.buf = d.buf[total:]
	return payload, true, nil
}
