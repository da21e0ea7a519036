package qos_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/metrics/qos"
	"github.com/ethan/videotester-go/internal/model"
)

func TestComputeRejectsUnknownMetric(t *testing.T) {
	_, err := qos.Compute("made-up", nil, nil)
	require.Error(t, err)
}

func TestLatencyAveragesRttSamplesHalvedToMs(t *testing.T) {
	rtt := []model.RttSample{
		{RequestTS: 0, ResponseTS: 0.010}, // 10ms rtt -> 5ms one-way
		{RequestTS: 0, ResponseTS: 0.020}, // 20ms rtt -> 10ms one-way
	}
	r, err := qos.Compute("latency", nil, rtt)
	require.NoError(t, err)
	require.Equal(t, model.KindScalar, r.Kind)
	require.InDelta(t, 7.5, r.Value, 1e-9)
}

func TestLatencyErrorsOnNoSamples(t *testing.T) {
	_, err := qos.Compute("latency", nil, nil)
	require.Error(t, err)
}

func TestDeltaFirstSampleZero(t *testing.T) {
	packets := []model.PacketRecord{
		{ArrivalTime: 1.000, Seq: 0},
		{ArrivalTime: 1.040, Seq: 1},
		{ArrivalTime: 1.100, Seq: 2},
	}
	r, err := qos.Compute("delta", packets, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, r.Y[0])
	require.InDelta(t, 40.0, r.Y[1], 1e-9)
	require.InDelta(t, 60.0, r.Y[2], 1e-9)
}

func TestJitterZeroForConstantSpacing(t *testing.T) {
	packets := []model.PacketRecord{
		{ArrivalTime: 0.000, RTPTimeSeconds: 0.000, Seq: 0},
		{ArrivalTime: 0.040, RTPTimeSeconds: 0.040, Seq: 1},
		{ArrivalTime: 0.080, RTPTimeSeconds: 0.080, Seq: 2},
	}
	r, err := qos.Compute("jitter", packets, nil)
	require.NoError(t, err)
	for _, v := range r.Y {
		require.InDelta(t, 0.0, v, 1e-9)
	}
}

func TestSkewComputesRtpMinusArrival(t *testing.T) {
	packets := []model.PacketRecord{{ArrivalTime: 1.0, RTPTimeSeconds: 1.005}}
	r, err := qos.Compute("skew", packets, nil)
	require.NoError(t, err)
	require.InDelta(t, 5.0, r.Y[0], 1e-9)
}

func TestBandwidthSumsTrailingOneSecondWindow(t *testing.T) {
	packets := []model.PacketRecord{
		{ArrivalTime: 0.0, Length: 125}, // 1kbit
		{ArrivalTime: 0.5, Length: 125},
		{ArrivalTime: 1.5, Length: 125},
	}
	r, err := qos.Compute("bandwidth", packets, nil)
	require.NoError(t, err)
	require.InDelta(t, 1.0, r.Y[0], 1e-9) // only itself
	require.InDelta(t, 2.0, r.Y[1], 1e-9) // itself + t=0.0 (0.0 > 0.5-1=-0.5)
	require.InDelta(t, 1.0, r.Y[2], 1e-9) // only itself (t=0.5 is not > 1.5-1=0.5)
}

func TestBandwidthCollapsesDuplicateTimestamps(t *testing.T) {
	packets := []model.PacketRecord{
		{ArrivalTime: 0.0, Length: 125},
		{ArrivalTime: 0.0, Length: 125}, // duplicate timestamp, should be collapsed
	}
	r, err := qos.Compute("bandwidth", packets, nil)
	require.NoError(t, err)
	require.Len(t, r.Y, 1)
}

func TestPacketLossRateNoLoss(t *testing.T) {
	packets := []model.PacketRecord{{Seq: 0}, {Seq: 1}, {Seq: 2}}
	r, err := qos.Compute("plr", packets, nil)
	require.NoError(t, err)
	require.Equal(t, 0.0, r.Value)
}

func TestPacketLossRateWithGap(t *testing.T) {
	packets := []model.PacketRecord{{Seq: 0}, {Seq: 3}} // 2 lost between 0 and 3
	r, err := qos.Compute("plr", packets, nil)
	require.NoError(t, err)
	require.InDelta(t, 2.0/4.0, r.Value, 1e-9)
}

func TestPacketLossDistributionBucketsByWholeSecond(t *testing.T) {
	packets := []model.PacketRecord{
		{ArrivalTime: 0.1, Seq: 0},
		{ArrivalTime: 0.5, Seq: 3}, // gap of 2 within the same [0,1) bucket
		{ArrivalTime: 1.2, Seq: 4},
	}
	r, err := qos.Compute("pld", packets, nil)
	require.NoError(t, err)
	require.Equal(t, model.KindBar, r.Kind)
	require.Len(t, r.X, 2)
	require.InDelta(t, 1.0, r.X[1]-r.X[0], 1e-9)
}
