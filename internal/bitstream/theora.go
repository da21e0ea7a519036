package bitstream

import "github.com/ethan/videotester-go/internal/model"

// Theora-in-Matroska start-code patterns: three SimpleBlock-ish masked
// byte patterns plus the EBML cluster marker. sc1a/sc1b only differ in
// their trailing byte (0x00 vs 0x80); sc1c is the shorter 6-byte variant.
var (
	sc1a    = []byte{0xA3, 0x00, 0x00, 0x81, 0x00, 0x00, 0x00}
	sc1b    = []byte{0xA3, 0x00, 0x00, 0x81, 0x00, 0x00, 0x80}
	mask1ab = []byte{0xFF, 0x00, 0x00, 0xFF, 0x00, 0x00, 0xFF}

	sc1c   = []byte{0xA3, 0x00, 0x81, 0x00, 0x00, 0x00}
	mask1c = []byte{0xFF, 0x00, 0xFF, 0x00, 0x00, 0xFF}

	sc2      = []byte{0x1F, 0x43, 0xB6, 0x75}
	videoTag = []byte("Video")
)

func matchMasked(window, pattern, mask []byte) bool {
	if len(window) < len(pattern) {
		return false
	}
	for i := range pattern {
		if window[i]&mask[i] != pattern[i] {
			return false
		}
	}
	return true
}

// scanTheora walks the Matroska byte stream: on a SimpleBlock-pattern
// match the previous frame's length closes unless this match is the
// 0x80-tailed variant (sc1b), which opens a new frame type without
// closing one; an EBML cluster marker (sc2) also closes a frame, unless
// the 5 bytes before it spell the ASCII tracks-header field "Video"
// rather than an actual block.
func scanTheora(data []byte) model.FrameList {
	var types []model.FrameType
	var lengths []int

	first := -1
	i := 0
	for i < len(data)-7 {
		matchA := matchMasked(data[i:], sc1a, mask1ab)
		matchB := matchMasked(data[i:], sc1b, mask1ab)
		matchC := matchMasked(data[i:], sc1c, mask1c)

		switch {
		case matchA || matchB || matchC:
			if !matchB && first != -1 {
				lengths = append(lengths, i-first)
			}
			if !matchC {
				i += 7
			} else {
				i += 6
			}
			first = i
			if i >= len(data) {
				i++
				continue
			}
			if data[i]&0x40 == 0 {
				types = append(types, model.FrameI)
			} else {
				types = append(types, model.FrameP)
			}
			i++
		case matchMasked(data[i:], sc2, []byte{0xFF, 0xFF, 0xFF, 0xFF}):
			if first != -1 && (i < 6 || !equalBytes(data[i-6:i-1], videoTag)) {
				lengths = append(lengths, i-first)
			}
		}
		i++
	}

	return model.FrameList{Types: types, Lengths: lengths}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
