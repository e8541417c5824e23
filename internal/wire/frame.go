// Package wire implements the delimiter-framed text protocol shared by all
// four processes. Every message is UTF-8 text terminated by the reserved
// Delim byte; TCP does not preserve message boundaries, so receivers must
// buffer partial reads and only act on complete frames.
package wire

import (
	"bufio"
	"bytes"
	"io"
)

// Delim terminates every frame. It is reserved: no field may contain it.
const Delim = '*'

// Sep separates fields inside a tick or bootstrap frame.
const Sep = '|'

// maxFrameSize bounds a single frame; anything larger is a protocol error.
const maxFrameSize = 64 * 1024

// ScanFrames is a bufio.SplitFunc that yields one complete frame per token,
// with the delimiter stripped.
func ScanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, Delim); i >= 0 {
		return i + 1, data[:i], nil
	}
	// A trailing partial frame at EOF is dropped: without the delimiter it
	// was never a complete message.
	if atEOF {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// NewScanner wraps r with frame splitting and a bounded buffer.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 4096), maxFrameSize)
	sc.Split(ScanFrames)
	return sc
}

// WriteFrame writes payload followed by the delimiter in a single call,
// so concurrent writers on the same conn need external serialization.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, Delim)
	_, err := w.Write(buf)
	return err
}
