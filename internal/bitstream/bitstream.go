// Package bitstream scans a compressed video elementary stream for frame
// boundaries and frame types without a full codec decode. Each codec
// gets its own start-code scanner; Parse dispatches to the right one
// from a small fixed table, the same idiom the metric engines use.
package bitstream

import (
	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/config"
	"github.com/ethan/videotester-go/pkg/logger"
)

type scanner func(data []byte) model.FrameList

var scanners = map[config.Codec]scanner{
	config.CodecH263:   scanH263,
	config.CodecH264:   scanH264,
	config.CodecMPEG4:  scanMPEG4,
	config.CodecTheora: scanTheora,
}

// Parse walks data looking for codec-specific start codes and returns the
// ordered list of frame types and inter-start-code byte lengths. The final
// frame's length is never known (no closing start code exists in a
// truncated capture), so len(Types) == len(Lengths)+1 always holds.
func Parse(codec config.Codec, data []byte) (model.FrameList, error) {
	scan, ok := scanners[codec]
	if !ok {
		return model.FrameList{}, verrors.New(verrors.UnsupportedCodec, "no bitstream scanner for codec "+string(codec))
	}
	out := scan(data)
	logger.Default().DebugBitstream("bitstream: parsed frames", "count", len(out.Types), "codec", codec)
	return out, nil
}

// frameBuilder accumulates start-code offsets and frame types in stream
// order; build() turns the offset list into the inter-start-code Lengths
// (one shorter than Types, since the last frame never closes).
type frameBuilder struct {
	offsets []int
	types   []model.FrameType
}

func (b *frameBuilder) push(offset int, t model.FrameType) {
	b.offsets = append(b.offsets, offset)
	b.types = append(b.types, t)
}

func (b *frameBuilder) build() model.FrameList {
	if len(b.offsets) == 0 {
		return model.FrameList{}
	}
	lengths := make([]int, len(b.offsets)-1)
	for i := range lengths {
		lengths[i] = b.offsets[i+1] - b.offsets[i]
	}
	return model.FrameList{Types: b.types, Lengths: lengths}
}
