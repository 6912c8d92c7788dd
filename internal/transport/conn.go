package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

const (
	// DefaultMaxLineBytes bounds a single inbound line
	DefaultMaxLineBytes = 64 * 1024
	// DefaultWriteTimeout bounds a single reply write
	DefaultWriteTimeout = 5 * time.Second
)

// ErrLineTooLong is returned when a peer sends a line over the size limit.
// The oversized line is discarded.
var ErrLineTooLong = fmt.Errorf("%w: line too long", pipeline.ErrMalformed)

// Conn adapts a stream connection to pipeline.Transport using a Framing.
//
// ReadOne polls with a read deadline of one poll interval so a cancelled
// context is noticed even while the peer is silent.
type Conn struct {
	conn         net.Conn
	reader       *bufio.Reader
	framing      Framing
	pollInterval time.Duration
	writeTimeout time.Duration
	maxLine      int

	partial []byte
	eof     bool

	writeMu sync.Mutex
}

// NewConn wraps c. A zero pollInterval uses pipeline.DefaultPollInterval.
func NewConn(c net.Conn, framing Framing, pollInterval time.Duration) *Conn {
	if framing == nil {
		framing = LineFraming{}
	}
	if pollInterval <= 0 {
		pollInterval = pipeline.DefaultPollInterval
	}
	return &Conn{
		conn:         c,
		reader:       bufio.NewReader(c),
		framing:      framing,
		pollInterval: pollInterval,
		writeTimeout: DefaultWriteTimeout,
		maxLine:      DefaultMaxLineBytes,
	}
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadOne returns the next decoded line. It returns io.EOF once the peer has
// closed its side and every complete line was consumed.
func (c *Conn) ReadOne(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.eof {
			return nil, io.EOF
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(c.pollInterval)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
		chunk, err := c.reader.ReadSlice('\n')
		c.partial = append(c.partial, chunk...)

		switch {
		case err == nil:
			line := trimEOL(c.partial)
			c.partial = nil
			if len(line) > c.maxLine {
				return nil, ErrLineTooLong
			}
			return c.framing.Decode(line)

		case errors.Is(err, bufio.ErrBufferFull):
			if len(c.partial) > c.maxLine {
				c.partial = nil
				c.discardLine()
				return nil, ErrLineTooLong
			}

		case errors.Is(err, os.ErrDeadlineExceeded):
			// quiet peer, re-check ctx

		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			c.eof = true
			if len(c.partial) > 0 {
				line := c.partial
				c.partial = nil
				return c.framing.Decode(trimEOL(line))
			}
			return nil, io.EOF

		default:
			return nil, err
		}
	}
}

// WriteOne writes one encoded reply
func (c *Conn) WriteOne(_ context.Context, reply pipeline.Reply) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	_, err := c.conn.Write(c.framing.Encode(reply))
	return err
}

// Close closes the underlying connection
func (c *Conn) Close() error {
	return c.conn.Close()
}

// discardLine drops input up to the next newline or the read deadline
func (c *Conn) discardLine() {
	for {
		_, err := c.reader.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
