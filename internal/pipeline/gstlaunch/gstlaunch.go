// Package gstlaunch implements pipeline.MediaPipeline by shelling out to
// an external gst-launch-1.0 binary (rtspsrc, depay, filesink tee'd into
// a decoded YUV sink for receive; filesrc, decodebin, encoder and tee for
// make-reference) rather than binding to GStreamer's C API directly.
package gstlaunch

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pipeline"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/pkg/config"
	"github.com/ethan/videotester-go/pkg/logger"
)

// codecElements holds the GStreamer element names needed to depay and
// encode each codec, plus the kbps-to-encoder-units bitrate conversion
// (avenc_h263p and avenc_mpeg4 take bits per second, x264enc and
// theoraenc take kbps).
type codecElements struct {
	encoder         string
	rtpPay          string
	rtpDepay        string
	add             string // extra caps-fixup element inserted after depay, if any
	bitrateFromKbps func(kbps int) int
}

var codecs = map[config.Codec]codecElements{
	config.CodecH263: {
		encoder: "avenc_h263p", rtpPay: "rtph263ppay", rtpDepay: "rtph263pdepay",
		bitrateFromKbps: func(kbps int) int { return kbps * 1000 },
	},
	config.CodecH264: {
		encoder: "x264enc", rtpPay: "rtph264pay", rtpDepay: "rtph264depay",
		add:             "! h264parse",
		bitrateFromKbps: func(kbps int) int { return kbps },
	},
	config.CodecMPEG4: {
		encoder: "avenc_mpeg4", rtpPay: "rtpmp4vpay", rtpDepay: "rtpmp4vdepay",
		bitrateFromKbps: func(kbps int) int { return kbps * 1000 },
	},
	config.CodecTheora: {
		encoder: "theoraenc", rtpPay: "rtptheorapay", rtpDepay: "rtptheoradepay",
		add:             "! oggmux",
		bitrateFromKbps: func(kbps int) int { return kbps },
	},
}

// Adapter is a pipeline.MediaPipeline that drives gst-launch-1.0.
type Adapter struct {
	binary string
	log    *logger.Logger

	mu     sync.Mutex
	server *exec.Cmd
	active []*exec.Cmd
}

// New returns an Adapter invoking the named gst-launch-1.0 binary ("" uses
// the default on PATH).
func New(binary string) *Adapter {
	if binary == "" {
		binary = "gst-launch-1.0"
	}
	return &Adapter{binary: binary, log: logger.Default()}
}

// StartServer probes that the gst-launch binary is runnable. The adapter
// does not itself implement RTSP-server mount points (that needs
// gst-rtsp-server, not gst-launch-1.0's pipeline DSL); it is provided so
// internal/control has a concrete process to supervise in the common case
// where the server side is a separately configured RTSP daemon.
func (a *Adapter) StartServer(ctx context.Context, port int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return verrors.New(verrors.PipelineError, "server already started")
	}
	cmd := exec.CommandContext(ctx, a.binary, "--version")
	if err := cmd.Run(); err != nil {
		return verrors.Wrap(verrors.PipelineError, fmt.Sprintf("probe %s", a.binary), err)
	}
	a.server = cmd
	a.log.DebugRTSP("gstlaunch: server probe ok", "port", port)
	return nil
}

// AddMedia is a no-op for the gst-launch adapter: mount-point management
// is the RTSP server's job, not something gst-launch-1.0's one-shot
// pipeline DSL can express. Kept as a named, logged step so
// engine.Session's orchestration order is unchanged even when the real
// mounting happens out of process.
func (a *Adapter) AddMedia(ctx context.Context, req pipeline.AddMediaRequest) error {
	a.log.DebugRTSP("gstlaunch: add media", "videos", req.Videos, "bitrate", req.BitrateKbps, "framerate", req.FramerateFPS)
	return nil
}

// Receive runs the receiver pipeline: rtspsrc depayed and written to
// <prefix>.<codec>, tee'd into a decoded
// <prefix>.yuv. SessionCaps fields are scraped from stdout lines the
// pipeline's identity elements are expected to print (see parseCapsLine);
// a real GStreamer process would emit these via GST_DEBUG or a small
// identity-element probe script, which is the collaborator's concern, not
// this adapter's.
func (a *Adapter) Receive(ctx context.Context, req pipeline.ReceiveRequest) (pipeline.ReceiveResult, error) {
	elems, ok := codecs[req.Codec]
	if !ok {
		return pipeline.ReceiveResult{}, verrors.New(verrors.UnsupportedCodec, "no gst-launch recipe for codec "+string(req.Codec))
	}

	compressed := req.OutPrefix + "." + string(req.Codec)
	yuvPath := req.OutPrefix + ".yuv"

	launch := fmt.Sprintf(
		"rtspsrc location=%s protocols=%s name=source ! tee name=t ! queue ! %s %s ! filesink location=%s t. ! queue ! decodebin ! filesink location=%s",
		req.URL, string(req.Transport), elems.rtpDepay, elems.add, compressed, yuvPath,
	)

	caps, err := a.run(ctx, launch)
	if err != nil {
		return pipeline.ReceiveResult{}, err
	}

	return pipeline.ReceiveResult{
		CompressedPath: compressed,
		YUVPath:        yuvPath,
		Caps:           caps,
	}, nil
}

// MakeReference runs two pipelines:
// a plain decode to <prefix>_ref_original.yuv, then an encode/decode round
// trip at the session codec/bitrate/framerate producing
// <prefix>_ref.<codec> and <prefix>_ref.yuv.
func (a *Adapter) MakeReference(ctx context.Context, req pipeline.ReferenceRequest) (pipeline.ReferenceResult, error) {
	elems, ok := codecs[req.Codec]
	if !ok {
		return pipeline.ReferenceResult{}, verrors.New(verrors.UnsupportedCodec, "no gst-launch recipe for codec "+string(req.Codec))
	}

	originalYUV := req.OutPrefix + "_ref_original.yuv"
	decodeLaunch := fmt.Sprintf(
		"filesrc location=%s/%s ! decodebin ! videorate ! video/x-raw,framerate=%d/1 ! filesink location=%s",
		req.SourceDir, req.Video, req.FramerateFPS, originalYUV,
	)
	if _, err := a.run(ctx, decodeLaunch); err != nil {
		return pipeline.ReferenceResult{}, err
	}

	compressed := req.OutPrefix + "_ref." + string(req.Codec)
	yuvPath := req.OutPrefix + "_ref.yuv"
	encodeLaunch := fmt.Sprintf(
		"filesrc location=%s/%s ! decodebin ! videorate ! video/x-raw,framerate=%d/1 ! %s bitrate=%d ! tee name=t ! queue %s ! filesink location=%s t. ! queue ! decodebin ! filesink location=%s",
		req.SourceDir, req.Video, req.FramerateFPS, elems.encoder, elems.bitrateFromKbps(req.BitrateKbps), elems.add, compressed, yuvPath,
	)
	if _, err := a.run(ctx, encodeLaunch); err != nil {
		return pipeline.ReferenceResult{}, err
	}

	return pipeline.ReferenceResult{
		OriginalYUVPath: originalYUV,
		CompressedPath:  compressed,
		YUVPath:         yuvPath,
	}, nil
}

// Close forgets the recorded server probe. The probe process has already
// exited by then, so no process is terminated here.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.server = nil
	return nil
}

// run launches one gst-launch-1.0 pipeline and blocks until it exits,
// scraping its stdout for caps lines as it goes.
func (a *Adapter) run(ctx context.Context, launch string) (model.SessionCaps, error) {
	cmd := exec.CommandContext(ctx, a.binary, "-q", launch)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return model.SessionCaps{}, verrors.Wrap(verrors.PipelineError, "stdout pipe", err)
	}

	var caps model.SessionCaps
	scanned := make(chan struct{})
	go func() {
		defer close(scanned)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			parseCapsLine(scanner.Text(), &caps)
		}
	}()

	if err := cmd.Start(); err != nil {
		return model.SessionCaps{}, verrors.Wrap(verrors.PipelineError, "start "+a.binary, err)
	}

	a.mu.Lock()
	a.active = append(a.active, cmd)
	a.mu.Unlock()

	<-scanned
	if err := cmd.Wait(); err != nil {
		return caps, verrors.Wrap(verrors.PipelineError, "gst-launch-1.0 exited with error", err)
	}
	return caps, nil
}

// parseCapsLine recognizes "key=value" caps lines (rtsp-sport, sdp-id,
// udp-dport, ptype, clock-rate, seq-base, width, height, format);
// anything else is ignored.
func parseCapsLine(line string, caps *model.SessionCaps) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	switch key {
	case "rtsp-sport":
		if n, err := strconv.Atoi(value); err == nil {
			caps.RTSPSPort = n
		}
	case "sdp-id":
		caps.SDPSessionID = []byte(value)
	case "udp-dport":
		if n, err := strconv.Atoi(value); err == nil {
			caps.UDPDPort = n
		}
	case "ptype":
		if n, err := strconv.Atoi(value); err == nil {
			caps.PayloadType = uint8(n)
		}
	case "clock-rate":
		if n, err := strconv.Atoi(value); err == nil {
			caps.ClockRate = uint32(n)
		}
	case "seq-base":
		if n, err := strconv.Atoi(value); err == nil {
			caps.SeqBase = uint32(n)
		}
	case "width":
		if n, err := strconv.Atoi(value); err == nil {
			caps.VideoWidth = n
		}
	case "height":
		if n, err := strconv.Atoi(value); err == nil {
			caps.VideoHeight = n
		}
	case "format":
		caps.PixelFormat = value
	}
}
