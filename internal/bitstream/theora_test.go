package bitstream_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/bitstream"
	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/pkg/config"
)

func TestParseTheoraClassifiesIAndP(t *testing.T) {
	data := []byte{
		0xA3, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00, // sc1a
		0x00, // frame byte, bit 0x40 clear -> I
		0x00, // frame payload
		0xA3, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00, // sc1a
		0x40, // frame byte, bit 0x40 set -> P
		0x00, // trailing payload
	}
	fl, err := bitstream.Parse(config.CodecTheora, data)
	require.NoError(t, err)
	require.Equal(t, []model.FrameType{model.FrameI, model.FrameP}, fl.Types)
	require.Len(t, fl.Lengths, len(fl.Types)-1)
	require.Equal(t, []int{2}, fl.Lengths)
}

func TestParseTheoraFirstMatchNeverClosesAPriorFrame(t *testing.T) {
	// A single SimpleBlock match has no prior frame to close: the
	// invariant len(Types) == len(Lengths)+1 must hold even when only one
	// start code is ever found.
	data := []byte{
		0xA3, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00, 0x00,
	}
	fl, err := bitstream.Parse(config.CodecTheora, data)
	require.NoError(t, err)
	require.Equal(t, []model.FrameType{model.FrameI}, fl.Types)
	require.Empty(t, fl.Lengths)
}
