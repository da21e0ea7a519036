// Package pipeline defines the media-pipeline collaborator contract:
// the external streaming framework responsible for RTSP
// negotiation, codec encode/decode and YUV file dumping. The core never
// implements codec encode/decode itself; it only needs something that
// speaks this interface, populates model.SessionCaps on the fly, and
// leaves the named files behind for the dissection/metric packages to
// read afterward.
package pipeline

import (
	"context"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/pkg/config"
)

// AddMediaRequest asks the pipeline to mount one RTSP endpoint per codec
// for each video in the library, encoder-specific bitrate conversion
// applied by the implementation (h263/mpeg4 multiply kbps by 1000,
// h264/theora pass through).
type AddMediaRequest struct {
	Videos       []string
	BitrateKbps  int
	FramerateFPS int
	SourceDir    string
}

// ReceiveRequest asks the pipeline to pull one session's worth of media
// off an RTSP URL over the given transport, writing the compressed
// stream and decoded YUV to OutPrefix-named files.
type ReceiveRequest struct {
	URL       string
	Transport config.Protocol
	Codec     config.Codec
	OutPrefix string
}

// ReceiveResult names the two files Receive left behind and the
// SessionCaps fields it recovered on the fly.
type ReceiveResult struct {
	CompressedPath string
	YUVPath        string
	Caps           model.SessionCaps
}

// ReferenceRequest asks the pipeline to decode the source once to get an
// original YUV, then re-encode/decode at the session's
// codec/bitrate/framerate to get a reference compressed file and YUV.
type ReferenceRequest struct {
	Video        string
	SourceDir    string
	Codec        config.Codec
	BitrateKbps  int
	FramerateFPS int
	OutPrefix    string
}

// ReferenceResult names the three files MakeReference left behind.
type ReferenceResult struct {
	OriginalYUVPath string
	CompressedPath  string
	YUVPath         string
}

// MediaPipeline is the contract the engine requires of the media-pipeline
// collaborator. A real implementation (gstlaunch.Adapter) shells out to an
// external streaming framework; FakePipeline exercises internal/engine's
// orchestration without one.
type MediaPipeline interface {
	StartServer(ctx context.Context, port int) error
	AddMedia(ctx context.Context, req AddMediaRequest) error
	Receive(ctx context.Context, req ReceiveRequest) (ReceiveResult, error)
	MakeReference(ctx context.Context, req ReferenceRequest) (ReferenceResult, error)
	Close() error
}
