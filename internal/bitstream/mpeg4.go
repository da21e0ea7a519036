package bitstream

import "github.com/ethan/videotester-go/internal/model"

// scanMPEG4 finds every VOP start code (00 00 01 B6) and classifies the
// frame from the top two bits of the following byte.
func scanMPEG4(data []byte) model.FrameList {
	var b frameBuilder
	for i := 0; i+4 < len(data); i++ {
		if data[i] != 0x00 || data[i+1] != 0x00 || data[i+2] != 0x01 || data[i+3] != 0xB6 {
			continue
		}
		var t model.FrameType
		switch data[i+4] & 0xC0 {
		case 0x00:
			t = model.FrameI
		case 0x40:
			t = model.FrameP
		case 0x80:
			t = model.FrameB
		default: // 0xC0
			t = model.FrameS
		}
		b.push(i, t)
	}
	return b.build()
}
