package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/control"
	"github.com/ethan/videotester-go/internal/engine"
	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/pipeline"
	"github.com/ethan/videotester-go/internal/testfixture"
	"github.com/ethan/videotester-go/pkg/config"
)

// writeCapture writes a classic pcap file carrying the given frames, one
// timestamp per index, so the engine exercises the real pcapio code path
// instead of a mock iterator.
func writeCapture(path string, frames [][]byte, timestamps []time.Time) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return err
	}
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     timestamps[i],
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := w.WritePacket(ci, frame); err != nil {
			return err
		}
	}
	return nil
}

// fakeCaptureFrom returns an engine.CaptureFunc that materializes a
// pre-built capture file instead of opening a live packet socket, then
// blocks until the engine cancels its context, the way the real capture
// task runs in parallel and is joined after the session ends.
func fakeCaptureFrom(frames [][]byte, timestamps []time.Time) engine.CaptureFunc {
	return func(ctx context.Context, iface, serverIP, outPath string) error {
		if err := writeCapture(outPath, frames, timestamps); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
}

func baseOpts(temp string, protocol config.Protocol) *config.Options {
	return &config.Options{
		Iface:     "lo",
		IP:        "127.0.0.1",
		Port:      8554,
		Video:     "video0",
		Codec:     config.CodecH264,
		Bitrate:   500,
		Framerate: 25,
		Protocol:  protocol,
		QoS:       []string{"plr", "delta"},
		Temp:      temp,
	}
}

// TestSessionRunUDPNoLoss runs a lossless UDP session end to end: 500
// RTP/UDP packets, PT=96, clock=90000, seq 1000..1499 in order, 40ms
// spacing. PLR must be 0 and Delta[i] must be 40ms for i>=1.
func TestSessionRunUDPNoLoss(t *testing.T) {
	const udpPort = 6000
	var frames [][]byte
	var timestamps []time.Time
	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 500; i++ {
		rtp := testfixture.RTPPacket(96, uint16(1000+i), uint32(i*3600), make([]byte, 100))
		frames = append(frames, testfixture.EthernetIPv4UDP(40000, udpPort, rtp))
		timestamps = append(timestamps, base.Add(time.Duration(i)*40*time.Millisecond))
	}

	temp := t.TempDir()
	opts := baseOpts(temp, config.ProtocolUDP)

	pl := &pipeline.FakePipeline{
		Caps: model.SessionCaps{
			UDPDPort: udpPort, PayloadType: 96, ClockRate: 90000, SeqBase: 1000,
			VideoWidth: 0, VideoHeight: 0, PixelFormat: "I420",
		},
		CompressedData: []byte{},
		YUVData:        []byte{},
		RefCompressed:  []byte{},
		RefYUV:         []byte{},
		OriginalYUV:    []byte{},
	}
	ctl := control.NewRefCountedPlane(pl, 8554, 1000)

	sess := engine.NewSession(opts, pl, ctl)
	sess.Capture = fakeCaptureFrom(frames, timestamps)

	result, err := sess.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	var plr, delta *model.MeasureResult
	for i := range result.Metrics {
		switch result.Metrics[i].Name {
		case "plr":
			plr = &result.Metrics[i]
		case "delta":
			delta = &result.Metrics[i]
		}
	}

	require.NotNil(t, plr)
	require.InDelta(t, 0, plr.Value, 1e-9)

	require.NotNil(t, delta)
	require.Len(t, delta.Y, 500)
	require.InDelta(t, 0, delta.Y[0], 1e-9)
	for i := 1; i < len(delta.Y); i++ {
		require.InDelta(t, 40, delta.Y[i], 1e-3)
	}

	// the metric files were persisted under the session directory
	sessionDir := filepath.Join(temp, "video0_h264_500_25_udp")
	require.FileExists(t, filepath.Join(sessionDir, result.Layout.Prefix+"_plr.json"))
}

// TestSessionRunTCPFragmented runs a TCP-interleaved session end to end:
// one RTP packet of length 1300 split across two TCP segments of 700+600
// bytes with matching tcp_seq, tunneled over the RTSP-interleaved framing.
func TestSessionRunTCPFragmented(t *testing.T) {
	const rtspSPort = 554
	const rtspDPort = 50000

	rtpPayload := make([]byte, 1300-12)
	frame := testfixture.Interleaved(testfixture.RTPPacket(96, 1, 0, rtpPayload))
	require.Len(t, frame, 1304)
	first, second := frame[:700], frame[700:]

	frames := [][]byte{
		testfixture.EthernetIPv4TCP(rtspSPort, rtspDPort, 1000, first),
		testfixture.EthernetIPv4TCP(rtspSPort, rtspDPort, 1000+700, second),
	}
	timestamps := []time.Time{time.Unix(1_700_000_000, 0), time.Unix(1_700_000_000, 10_000_000)}

	temp := t.TempDir()
	opts := baseOpts(temp, config.ProtocolTCP)
	opts.QoS = []string{"plr"}

	pl := &pipeline.FakePipeline{
		Caps: model.SessionCaps{
			RTSPSPort: rtspSPort, RTSPDPort: rtspDPort, PayloadType: 96, ClockRate: 90000, SeqBase: 1,
			PixelFormat: "I420",
		},
	}
	ctl := control.NewRefCountedPlane(pl, 8554, 1000)

	sess := engine.NewSession(opts, pl, ctl)
	sess.Capture = fakeCaptureFrom(frames, timestamps)

	result, err := sess.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
}
