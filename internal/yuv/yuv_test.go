package yuv_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/internal/yuv"
)

func writeYUVFile(t *testing.T, frames, width, height int) string {
	t.Helper()
	chunk := width * height * 3 / 2
	path := filepath.Join(t.TempDir(), "clip.yuv")
	data := make([]byte, chunk*frames)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIteratorYieldsDeclaredFrameCount(t *testing.T) {
	path := writeYUVFile(t, 5, 16, 8)

	it, err := yuv.Open(path, 16, 8, "I420")
	require.NoError(t, err)
	defer it.Close()

	require.Equal(t, 5, it.FrameCount())

	count := 0
	for {
		frame, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Len(t, frame.Y, 16*8)
		require.Len(t, frame.U, 16*8/4)
		require.Len(t, frame.V, 16*8/4)
		count++
	}
	require.Equal(t, 5, count)
}

func TestIteratorRestart(t *testing.T) {
	path := writeYUVFile(t, 2, 4, 4)
	it, err := yuv.Open(path, 4, 4, "I420")
	require.NoError(t, err)
	defer it.Close()

	first, err := it.Next()
	require.NoError(t, err)

	require.NoError(t, it.Restart())
	again, err := it.Next()
	require.NoError(t, err)
	require.Equal(t, first.Y, again.Y)
}

func TestOpenRejectsNonI420(t *testing.T) {
	path := writeYUVFile(t, 1, 4, 4)
	_, err := yuv.Open(path, 4, 4, "NV12")
	require.Error(t, err)
}

func TestOpenRejectsMisalignedFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yuv")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))
	_, err := yuv.Open(path, 4, 4, "I420")
	require.Error(t, err)
}
