package session

import (
	"fmt"
	"path/filepath"

	"github.com/ethan/videotester-go/pkg/config"
)

// Layout names every file one session run produces:
//
//	<temp>/<video>_<codec>_<bitrate>_<framerate>_<protocol>/NN.*
type Layout struct {
	Dir    string
	Prefix string
	Codec  config.Codec
}

// NewLayout builds the session directory name from the option table and
// joins it under temp.
func NewLayout(temp, video string, codec config.Codec, bitrate, framerate int, protocol config.Protocol, prefix string) Layout {
	dirName := fmt.Sprintf("%s_%s_%d_%d_%s", video, codec, bitrate, framerate, protocol)
	return Layout{Dir: filepath.Join(temp, dirName), Prefix: prefix, Codec: codec}
}

func (l Layout) path(name string) string {
	return filepath.Join(l.Dir, l.Prefix+name)
}

// CapturePath is the raw PCAP file the capture task writes and the
// dissectors read.
func (l Layout) CapturePath() string { return l.path(".cap") }

// CompressedPath is the received compressed stream the media pipeline
// writes (<prefix>.<codec>).
func (l Layout) CompressedPath() string { return l.path("." + string(l.Codec)) }

// YUVPath is the decoded received YUV file.
func (l Layout) YUVPath() string { return l.path(".yuv") }

// RefCompressedPath is the re-encoded reference compressed file.
func (l Layout) RefCompressedPath() string { return l.path("_ref." + string(l.Codec)) }

// RefYUVPath is the decoded reference YUV file.
func (l Layout) RefYUVPath() string { return l.path("_ref.yuv") }

// RefOriginalYUVPath is the once-decoded, unencoded source YUV file.
func (l Layout) RefOriginalYUVPath() string { return l.path("_ref_original.yuv") }

// MetricPath names the serialized result file for one computed metric
// (<prefix>_<metric-name>.json).
func (l Layout) MetricPath(metricName string) string {
	return l.path("_" + metricName + ".json")
}
