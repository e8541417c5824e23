package wire_test

import (
	"bytes"
	"io"
	"testing"

	"trading_go/internal/wire"
)

// chunkReader returns its data a few bytes at a time to simulate TCP
// delivering arbitrary segment boundaries.
type chunkReader struct {
	data  []byte
	pos   int
	chunk int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data)-r.pos {
		n = len(r.data) - r.pos
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[r.pos:r.pos+n])
	r.pos += n
	return n, nil
}

func TestScannerReassemblesPartialReads(t *testing.T) {
	payload := []byte("1700000000000|AAPL|181.5*1700000000100|MSFT|410.25*")

	// Every chunk size must yield the same two frames.
	for chunk := 1; chunk <= 7; chunk++ {
		sc := wire.NewScanner(&chunkReader{data: payload, chunk: chunk})

		var frames []string
		for sc.Scan() {
			frames = append(frames, sc.Text())
		}
		if err := sc.Err(); err != nil {
			t.Fatalf("chunk=%d: scan failed: %v", chunk, err)
		}
		if len(frames) != 2 {
			t.Fatalf("chunk=%d: expected 2 frames, got %d", chunk, len(frames))
		}
		if frames[0] != "1700000000000|AAPL|181.5" {
			t.Errorf("chunk=%d: bad first frame: %q", chunk, frames[0])
		}
		if frames[1] != "1700000000100|MSFT|410.25" {
			t.Errorf("chunk=%d: bad second frame: %q", chunk, frames[1])
		}
	}
}

func TestScannerDropsTrailingPartialFrame(t *testing.T) {
	sc := wire.NewScanner(bytes.NewReader([]byte("complete*incompl")))

	if !sc.Scan() {
		t.Fatal("expected one complete frame")
	}
	if sc.Text() != "complete" {
		t.Errorf("got %q", sc.Text())
	}
	// The unterminated tail is never surfaced as a frame.
	for sc.Scan() {
		if len(sc.Bytes()) > 0 {
			t.Errorf("partial frame leaked: %q", sc.Text())
		}
	}
}

func TestWriteFrameAppendsDelimiter(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.WriteFrame(&buf, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if got := buf.String(); got != "hello*" {
		t.Errorf("expected %q, got %q", "hello*", got)
	}
}
