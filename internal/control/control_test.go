package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/pipeline"
)

func TestRefCountedPlaneSharesServerAcrossRun(t *testing.T) {
	pl := &pipeline.FakePipeline{}
	plane := NewRefCountedPlane(pl, 8554, 1000)
	ctx := context.Background()

	port1, err := plane.Run(ctx, 500, 25)
	require.NoError(t, err)
	require.Equal(t, 8554, port1)

	port2, err := plane.Run(ctx, 500, 25)
	require.NoError(t, err)
	require.Equal(t, port1, port2, "second caller for the same bitrate/framerate joins the existing server")

	require.NoError(t, plane.Stop(ctx, 500, 25))
	require.NoError(t, plane.Stop(ctx, 500, 25), "last stop tears the server down")

	require.Error(t, plane.Stop(ctx, 500, 25), "stop beyond the ref count reports no running server")
}

func TestRefCountedPlaneAllocatesDistinctPorts(t *testing.T) {
	pl := &pipeline.FakePipeline{}
	plane := NewRefCountedPlane(pl, 9000, 1000)
	ctx := context.Background()

	portA, err := plane.Run(ctx, 500, 25)
	require.NoError(t, err)

	portB, err := plane.Run(ctx, 1000, 30)
	require.NoError(t, err)

	require.NotEqual(t, portA, portB)
}
