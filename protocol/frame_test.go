package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"type":"logout"}`),
		[]byte(""),
		bytes.Repeat([]byte("x"), 4096),
	}
	var buf bytes.Buffer
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for i, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame %d mismatch: got %d bytes, want %d", i, len(got), len(want))
		}
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrame(&buf, make([]byte, MaxFrameSize+1))
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestDecoderIncremental(t *testing.T) {
	payload := []byte(`{"type":"login","data":{"username":"alice"}}`)
	var wire bytes.Buffer
	if err := WriteFrame(&wire, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	raw := wire.Bytes()

	var d Decoder
	// Feed byte by byte; every prefix of the frame must report "need more".
	for i := 0; i < len(raw)-1; i++ {
		d.Feed(raw[i : i+1])
		if _, ok, err := d.Next(); err != nil {
			t.Fatalf("Next at byte %d: %v", i, err)
		} else if ok {
			t.Fatalf("complete frame after %d of %d bytes", i+1, len(raw))
		}
	}
	d.Feed(raw[len(raw)-1:])
	got, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("Next after full frame: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	if _, ok, _ := d.Next(); ok {
		t.Fatal("unexpected second frame")
	}
}

func TestDecoderMultipleFrames(t *testing.T) {
	var wire bytes.Buffer
	for _, p := range []string{"one", "two", "three"} {
		if err := WriteFrame(&wire, []byte(p)); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	var d Decoder
	d.Feed(wire.Bytes())
	for _, want := range []string{"one", "two", "three"} {
		got, ok, err := d.Next()
		if err != nil || !ok {
			t.Fatalf("Next: ok=%v err=%v", ok, err)
		}
		if string(got) != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}

func TestDecoderOversizedPrefix(t *testing.T) {
	var d Decoder
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], MaxFrameSize+1)
	d.Feed(prefix[:])
	if _, _, err := d.Next(); err == nil {
		t.Fatal("expected oversize error")
	}
}
