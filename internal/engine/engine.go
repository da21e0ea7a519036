// Package engine orchestrates one full session run: capture + media
// pipeline in parallel, then dissection, bitstream parsing and metric
// computation single-threaded once both have joined. All cross-task
// hand-off goes through the on-disk capture file plus the in-memory
// SessionCaps; nothing downstream runs until both tasks have exited.
package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ethan/videotester-go/internal/bitstream"
	"github.com/ethan/videotester-go/internal/capture"
	"github.com/ethan/videotester-go/internal/control"
	"github.com/ethan/videotester-go/internal/discover"
	"github.com/ethan/videotester-go/internal/metrics/bs"
	"github.com/ethan/videotester-go/internal/metrics/qos"
	"github.com/ethan/videotester-go/internal/metrics/vq"
	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pcapio"
	"github.com/ethan/videotester-go/internal/pipeline"
	"github.com/ethan/videotester-go/internal/rtpdissect"
	"github.com/ethan/videotester-go/internal/session"
	"github.com/ethan/videotester-go/internal/verrors"
	"github.com/ethan/videotester-go/internal/yuv"
	"github.com/ethan/videotester-go/pkg/config"
	"github.com/ethan/videotester-go/pkg/logger"
)

// CaptureFunc runs a live capture against iface, filtered by serverIP,
// writing to outPath; it blocks until ctx is cancelled or capture fails.
// The default
// is capture.Run; tests substitute a fake that materializes a pre-built
// capture file instead of opening a live interface.
type CaptureFunc func(ctx context.Context, iface, serverIP, outPath string) error

// Session holds everything one engine run needs: the option table, the
// media pipeline, the control plane and the capture task.
type Session struct {
	Opts     *config.Options
	Pipeline pipeline.MediaPipeline
	Control  control.ControlPlane
	Capture  CaptureFunc

	log *logger.Logger
}

// NewSession builds a Session wired to the real capture.Run; set
// s.Capture to a test double to skip live packet capture.
func NewSession(opts *config.Options, pl pipeline.MediaPipeline, ctl control.ControlPlane) *Session {
	return &Session{
		Opts:     opts,
		Pipeline: pl,
		Control:  ctl,
		Capture:  capture.Run,
		log:      logger.Default(),
	}
}

// Result is what one session run leaves behind: the file layout and every
// metric the config requested that didn't fail.
type Result struct {
	Layout  session.Layout
	Metrics []model.MeasureResult
}

// Run sequences one session end to end: start the RTSP server, mount
// media, run capture and receive concurrently, make the reference, then
// dissect and compute metrics single-threaded.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if err := s.Opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate options: %w", err)
	}

	sessionRoot, err := s.sessionDir()
	if err != nil {
		return nil, err
	}
	dirAlloc, err := session.NewAllocator(sessionRoot)
	if err != nil {
		return nil, err
	}
	prefix, err := dirAlloc.Reserve()
	if err != nil {
		return nil, err
	}
	layout := session.NewLayout(s.Opts.Temp, s.Opts.Video, s.Opts.Codec, s.Opts.Bitrate, s.Opts.Framerate, s.Opts.Protocol, prefix)

	port, err := s.Control.Run(ctx, s.Opts.Bitrate, s.Opts.Framerate)
	if err != nil {
		return nil, verrors.Wrap(verrors.PipelineError, "control run", err)
	}
	defer func() {
		if err := s.Control.Stop(ctx, s.Opts.Bitrate, s.Opts.Framerate); err != nil {
			s.log.Error("control stop failed", "error", err)
		}
	}()

	if err := s.Pipeline.AddMedia(ctx, pipeline.AddMediaRequest{
		Videos:       []string{s.Opts.Video},
		BitrateKbps:  s.Opts.Bitrate,
		FramerateFPS: s.Opts.Framerate,
		SourceDir:    s.Opts.Temp,
	}); err != nil {
		return nil, verrors.Wrap(verrors.PipelineError, "add media", err)
	}

	caps, recvResult, err := s.captureAndReceive(ctx, layout, port)
	if err != nil {
		return nil, err
	}

	refResult, err := s.Pipeline.MakeReference(ctx, pipeline.ReferenceRequest{
		Video:        s.Opts.Video,
		SourceDir:    s.Opts.Temp,
		Codec:        s.Opts.Codec,
		BitrateKbps:  s.Opts.Bitrate,
		FramerateFPS: s.Opts.Framerate,
		OutPrefix:    layout.Dir + string(os.PathSeparator) + layout.Prefix,
	})
	if err != nil {
		return nil, verrors.Wrap(verrors.PipelineError, "make reference", err)
	}

	packets, rtt, err := s.dissect(caps, layout)
	if err != nil && !verrors.Is(err, verrors.RttUnderSampled) {
		return nil, err
	}

	var results []model.MeasureResult
	results = append(results, s.computeQoS(packets, rtt)...)

	recvFrames, refFrames, err := s.parseBitstreams(recvResult.CompressedPath, refResult.CompressedPath)
	if err != nil {
		s.log.Error("bitstream parse failed", "error", err)
	} else {
		results = append(results, s.computeBS(recvFrames, refFrames)...)
	}

	vqResults, vqErr := s.computeVQ(caps, recvResult, refResult, packets)
	if vqErr != nil {
		s.log.Error("vq metrics skipped", "error", vqErr)
	} else {
		results = append(results, vqResults...)
	}

	for _, r := range results {
		if err := persistResult(layout, r); err != nil {
			s.log.Error("persist metric failed", "metric", r.Name, "error", err)
		}
	}

	return &Result{Layout: layout, Metrics: results}, nil
}

func (s *Session) sessionDir() (string, error) {
	dirName := fmt.Sprintf("%s_%s_%d_%d_%s", s.Opts.Video, s.Opts.Codec, s.Opts.Bitrate, s.Opts.Framerate, s.Opts.Protocol)
	path := s.Opts.Temp + string(os.PathSeparator) + dirName
	return path, nil
}

// captureAndReceive starts the packet capture and the media pipeline's
// receive concurrently and joins both: neither dissection nor metrics
// may start until both tasks have completed.
func (s *Session) captureAndReceive(ctx context.Context, layout session.Layout, port int) (model.SessionCaps, pipeline.ReceiveResult, error) {
	captureCtx, cancelCapture := context.WithCancel(ctx)
	defer cancelCapture()

	var wg sync.WaitGroup
	var captureErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		captureErr = s.Capture(captureCtx, s.Opts.Iface, s.Opts.IP, layout.CapturePath())
	}()

	url := fmt.Sprintf("rtsp://%s:%d/%s.%s", s.Opts.IP, port, s.Opts.Video, s.Opts.Codec)
	recvResult, err := s.Pipeline.Receive(ctx, pipeline.ReceiveRequest{
		URL:       url,
		Transport: s.Opts.Protocol,
		Codec:     s.Opts.Codec,
		OutPrefix: layout.Dir + string(os.PathSeparator) + layout.Prefix,
	})

	cancelCapture()
	wg.Wait()

	if err != nil {
		return model.SessionCaps{}, pipeline.ReceiveResult{}, verrors.Wrap(verrors.PipelineError, "receive", err)
	}
	if captureErr != nil {
		s.log.Error("capture task reported an error", "error", captureErr)
	}

	return recvResult.Caps, recvResult, nil
}

// dissect discovers RTSP/SDP session parameters from the capture, then
// dissects the RTP sub-stream over the transport the session requested.
// udp-mcast is treated identically to udp; once the destination port is
// known the dissection path does not care about multicast.
func (s *Session) dissect(caps model.SessionCaps, layout session.Layout) ([]model.PacketRecord, []model.RttSample, error) {
	it, closeFile, err := pcapio.OpenFile(layout.CapturePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open capture: %w", err)
	}
	defer closeFile()

	records, err := it.All()
	if err != nil {
		return nil, nil, fmt.Errorf("iterate capture: %w", err)
	}

	caps, rtt, discoverErr := discover.Discover(caps, records)

	var packets []model.PacketRecord
	var dissectErr error
	if s.Opts.Protocol == config.ProtocolTCP {
		packets, dissectErr = rtpdissect.FromTCP(caps, records)
	} else {
		packets, dissectErr = rtpdissect.FromUDP(caps, records)
	}
	if dissectErr != nil {
		return nil, rtt, fmt.Errorf("dissect rtp: %w", dissectErr)
	}

	return packets, rtt, discoverErr
}

func (s *Session) computeQoS(packets []model.PacketRecord, rtt []model.RttSample) []model.MeasureResult {
	var out []model.MeasureResult
	for _, id := range s.Opts.QoS {
		r, err := qos.Compute(id, packets, rtt)
		if err != nil {
			s.log.Error("qos metric failed", "id", id, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Session) parseBitstreams(recvPath, refPath string) (recv, ref model.FrameList, err error) {
	recvData, err := os.ReadFile(recvPath)
	if err != nil {
		return model.FrameList{}, model.FrameList{}, fmt.Errorf("read received stream: %w", err)
	}
	refData, err := os.ReadFile(refPath)
	if err != nil {
		return model.FrameList{}, model.FrameList{}, fmt.Errorf("read reference stream: %w", err)
	}

	recv, err = bitstream.Parse(s.Opts.Codec, recvData)
	if err != nil {
		return model.FrameList{}, model.FrameList{}, err
	}
	ref, err = bitstream.Parse(s.Opts.Codec, refData)
	if err != nil {
		return model.FrameList{}, model.FrameList{}, err
	}
	return recv, ref, nil
}

func (s *Session) computeBS(recv, ref model.FrameList) []model.MeasureResult {
	var out []model.MeasureResult
	for _, id := range s.Opts.BS {
		r, err := bs.Compute(id, recv, ref)
		if err != nil {
			s.log.Error("bs metric failed", "id", id, "error", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// computeVQ reads the received, coded-reference and original YUV
// sequences and computes every requested VQ metric.
// psnr/ssim compare received against the coded reference; psnrtomos grades
// that same received-vs-coded-reference PSNR series; miv additionally
// needs received-vs-original and coded-vs-original PSNR series (graded
// through the same psnrToMOS mapping) to find frames where the received
// stream's quality drop against the source is worse than the reference
// encode's own drop.
func (s *Session) computeVQ(caps model.SessionCaps, recvResult pipeline.ReceiveResult, refResult pipeline.ReferenceResult, packets []model.PacketRecord) ([]model.MeasureResult, error) {
	if len(s.Opts.VQ) == 0 {
		return nil, nil
	}

	recvFrames, err := readAllYUV(recvResult.YUVPath, caps.VideoWidth, caps.VideoHeight, caps.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("read received yuv: %w", err)
	}
	refFrames, err := readAllYUV(refResult.YUVPath, caps.VideoWidth, caps.VideoHeight, caps.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("read reference yuv: %w", err)
	}
	originalFrames, err := readAllYUV(refResult.OriginalYUVPath, caps.VideoWidth, caps.VideoHeight, caps.PixelFormat)
	if err != nil {
		return nil, fmt.Errorf("read original yuv: %w", err)
	}

	var plr float64
	if r, err := qos.Compute("plr", packets, nil); err == nil {
		plr = r.Value
	}

	base := vq.Input{
		Recv:           recvFrames,
		Ref:            refFrames,
		Bitrate:        float64(s.Opts.Bitrate),
		Framerate:      float64(s.Opts.Framerate),
		PacketLossRate: plr,
	}

	// psnrtomos grades the psnr series, so that series must exist before
	// the main loop runs regardless of where "psnr"/"psnrtomos" fall in
	// s.Opts.VQ's order.
	var primaryPSNR []float64
	var primaryPSNRResult model.MeasureResult
	var primaryPSNRErr error
	if containsString(s.Opts.VQ, "psnr") || containsString(s.Opts.VQ, "psnrtomos") {
		primaryPSNRResult, primaryPSNRErr = vq.Compute("psnr", base)
		if primaryPSNRErr == nil {
			primaryPSNR = primaryPSNRResult.Y
		}
	}

	var out []model.MeasureResult
	for _, id := range s.Opts.VQ {
		switch id {
		case "miv":
			continue // handled after the loop; needs recv/coded-vs-original series first
		case "psnr":
			if primaryPSNRErr != nil {
				s.log.Error("vq metric failed", "id", id, "error", primaryPSNRErr)
				continue
			}
			out = append(out, primaryPSNRResult)
		case "psnrtomos":
			in := base
			in.PSNR = primaryPSNR
			r, err := vq.Compute(id, in)
			if err != nil {
				s.log.Error("vq metric failed", "id", id, "error", err)
				continue
			}
			out = append(out, r)
		default:
			r, err := vq.Compute(id, base)
			if err != nil {
				s.log.Error("vq metric failed", "id", id, "error", err)
				continue
			}
			out = append(out, r)
		}
	}

	if containsString(s.Opts.VQ, "miv") {
		recvVsOriginal, err1 := vq.Compute("psnr", vq.Input{Recv: recvFrames, Ref: originalFrames})
		codedVsOriginal, err2 := vq.Compute("psnr", vq.Input{Recv: refFrames, Ref: originalFrames})
		if err1 == nil && err2 == nil {
			recvMOS, _ := vq.Compute("psnrtomos", vq.Input{PSNR: recvVsOriginal.Y})
			codedMOS, _ := vq.Compute("psnrtomos", vq.Input{PSNR: codedVsOriginal.Y})
			r, err := vq.Compute("miv", vq.Input{RecvMOS: recvMOS.Y, CodedMOS: codedMOS.Y})
			if err != nil {
				s.log.Error("vq metric failed", "id", "miv", "error", err)
			} else {
				out = append(out, r)
			}
		}
	}

	return out, nil
}

func readAllYUV(path string, width, height int, pixelFormat string) ([]model.YUVFrame, error) {
	it, err := yuv.Open(path, width, height, pixelFormat)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	frames := make([]model.YUVFrame, 0, it.FrameCount())
	for {
		f, err := it.Next()
		if err != nil {
			break
		}
		frames = append(frames, f)
	}
	return frames, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func persistResult(layout session.Layout, r model.MeasureResult) error {
	data, err := r.MarshalJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(layout.MetricPath(r.Name), data, 0o644)
}
