package bitstream

import "github.com/ethan/videotester-go/internal/model"

// scanH263 finds every Picture Start Code (00 00 80 under mask FF FF FC,
// i.e. the low two bits of the third byte are don't-cares) and classifies
// each frame from bit 0x02 of the fourth byte.
func scanH263(data []byte) model.FrameList {
	var b frameBuilder
	for i := 0; i+3 < len(data); i++ {
		if data[i] != 0x00 || data[i+1] != 0x00 || data[i+2]&0xFC != 0x80 {
			continue
		}
		t := model.FrameI
		if data[i+3]&0x02 != 0 {
			t = model.FrameP
		}
		b.push(i, t)
	}
	return b.build()
}
