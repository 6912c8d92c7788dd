package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/turbosocket/internal/pipeline"
)

func TestNewFraming(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"line", FramingLine, false},
		{"", FramingLine, false},
		{"hex", FramingHex, false},
		{"base64", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFraming(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Name())
		})
	}
}

func TestLineFraming(t *testing.T) {
	f := LineFraming{}

	line := []byte("hello")
	got, err := f.Decode(line)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	line[0] = 'j'
	assert.Equal(t, "hello", string(got), "decoded payload must not alias the read buffer")

	assert.Equal(t, "HELLO\n", string(f.Encode(pipeline.Reply{Payload: []byte("HELLO")})))
	assert.Equal(t, "ERR bad input\n", string(f.Encode(pipeline.Reply{Err: errors.New("bad\ninput")})))
}

func TestHexFraming(t *testing.T) {
	f := HexFraming{}

	got, err := f.Decode([]byte(" 4d4e00ff "))
	require.NoError(t, err)
	assert.Equal(t, []byte{'M', 'N', 0x00, 0xff}, got)

	_, err = f.Decode([]byte("zz"))
	assert.ErrorIs(t, err, pipeline.ErrMalformed)

	assert.Equal(t, "4d4e\n", string(f.Encode(pipeline.Reply{Payload: []byte("MN")})))
	assert.Equal(t, "ERR nope\n", string(f.Encode(pipeline.Reply{Err: errors.New("nope")})))
}
