package bitstream

import "github.com/ethan/videotester-go/internal/model"

// sliceTypeTable maps the first byte of the slice header's
// first_mb_in_slice+slice_type Exp-Golomb codeword to a frame type by a
// greedy threshold approximation. This deliberately does not decode
// Exp-Golomb properly and can misclassify B vs. P near the threshold
// boundaries. Checked high-to-low since ranges are "byte >= threshold".
var sliceTypeTable = []struct {
	min byte
	typ model.FrameType
}{
	{0x40, model.FrameP},
	{0x30, model.FrameI},
	{0x20, model.FrameB},
	{0x1C, model.FrameB},
	{0x18, model.FrameP},
	{0x14, model.FrameSI},
	{0x10, model.FrameSP},
	{0x0A, model.FrameSI},
	{0x09, model.FrameSP},
	{0x08, model.FrameI},
}

func sliceType(firstByte byte) (model.FrameType, bool) {
	v := firstByte & 0x7F
	for _, row := range sliceTypeTable {
		if v >= row.min {
			return row.typ, true
		}
	}
	return "", false
}

// scanH264 finds every Annex B start code (00 00 00 01) and, for slice NAL
// units (type 0x01 or 0x05), classifies the frame via the approximated
// slice-type table. Non-slice NALs (SPS, PPS, SEI, ...) are skipped: they
// do not delimit a new frame.
func scanH264(data []byte) model.FrameList {
	var b frameBuilder
	for i := 0; i+4 < len(data); i++ {
		if data[i] != 0x00 || data[i+1] != 0x00 || data[i+2] != 0x00 || data[i+3] != 0x01 {
			continue
		}
		nalType := data[i+4] & 0x1F
		if nalType != 0x01 && nalType != 0x05 {
			continue
		}
		if i+5 >= len(data) {
			continue
		}
		t, ok := sliceType(data[i+5])
		if !ok {
			continue
		}
		b.push(i, t)
	}
	return b.build()
}
