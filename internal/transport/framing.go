package transport

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

// Framing names
const (
	FramingLine = "line"
	FramingHex  = "hex"
)

// errorPrefix starts a line carrying a failed reply
var errorPrefix = []byte("ERR ")

// Framing converts between newline-delimited wire lines and pipeline values.
// Lines passed to Decode have the trailing "\n" or "\r\n" removed; Encode
// output includes the terminating newline.
type Framing interface {
	Name() string
	Decode(line []byte) ([]byte, error)
	Encode(reply pipeline.Reply) []byte
}

// NewFraming returns the framing registered under name
func NewFraming(name string) (Framing, error) {
	switch name {
	case FramingLine, "":
		return LineFraming{}, nil
	case FramingHex:
		return HexFraming{}, nil
	default:
		return nil, fmt.Errorf("unknown framing %q (available: %s, %s)", name, FramingLine, FramingHex)
	}
}

// LineFraming passes each line through as the payload
type LineFraming struct{}

func (LineFraming) Name() string { return FramingLine }

func (LineFraming) Decode(line []byte) ([]byte, error) {
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

func (LineFraming) Encode(reply pipeline.Reply) []byte {
	if reply.Err != nil {
		return errorLine(reply.Err)
	}
	out := make([]byte, 0, len(reply.Payload)+1)
	out = append(out, reply.Payload...)
	return append(out, '\n')
}

// HexFraming carries binary payloads as hex text, one command per line
type HexFraming struct{}

func (HexFraming) Name() string { return FramingHex }

func (HexFraming) Decode(line []byte) ([]byte, error) {
	line = bytes.TrimSpace(line)
	out := make([]byte, hex.DecodedLen(len(line)))
	if _, err := hex.Decode(out, line); err != nil {
		return nil, fmt.Errorf("%w: decode hex line: %v", pipeline.ErrMalformed, err)
	}
	return out, nil
}

func (HexFraming) Encode(reply pipeline.Reply) []byte {
	if reply.Err != nil {
		return errorLine(reply.Err)
	}
	out := make([]byte, hex.EncodedLen(len(reply.Payload)), hex.EncodedLen(len(reply.Payload))+1)
	hex.Encode(out, reply.Payload)
	return append(out, '\n')
}

func errorLine(err error) []byte {
	msg := bytes.ReplaceAll([]byte(err.Error()), []byte("\n"), []byte(" "))
	out := make([]byte, 0, len(errorPrefix)+len(msg)+1)
	out = append(out, errorPrefix...)
	out = append(out, msg...)
	return append(out, '\n')
}
