// Package yuv streams raw I420 frames out of a YUV file.
package yuv

import (
	"io"
	"os"

	"github.com/ethan/videotester-go/internal/model"
	"github.com/ethan/videotester-go/internal/verrors"
)

const pixelFormatI420 = "I420"

// Iterator is a restartable, lazy sequence of model.YUVFrame read from a
// file of declared (width, height, I420) dimensions.
type Iterator struct {
	f          *os.File
	width      int
	height     int
	chunkSize  int
	frameCount int
}

// Open validates the pixel format and the file-size/chunk-size
// divisibility invariant and returns a restartable Iterator.
func Open(path string, width, height int, pixelFormat string) (*Iterator, error) {
	if pixelFormat != pixelFormatI420 {
		return nil, verrors.New(verrors.UnsupportedPixel, "only I420 is supported")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	chunk := width * height * 3 / 2
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if chunk == 0 || info.Size()%int64(chunk) != 0 {
		f.Close()
		return nil, verrors.New(verrors.UnsupportedPixel, "file size is not a multiple of the frame chunk size")
	}

	return &Iterator{
		f:          f,
		width:      width,
		height:     height,
		chunkSize:  chunk,
		frameCount: int(info.Size() / int64(chunk)),
	}, nil
}

// FrameCount returns file_size / chunk_size.
func (it *Iterator) FrameCount() int { return it.frameCount }

// Restart seeks back to the beginning of the file.
func (it *Iterator) Restart() error {
	_, err := it.f.Seek(0, io.SeekStart)
	return err
}

// Close releases the underlying file handle.
func (it *Iterator) Close() error { return it.f.Close() }

// Next reads one chunk and splits it into Y (W×H), U and V (W/2×H/2 each)
// planes, returning io.EOF once the file is exhausted.
func (it *Iterator) Next() (model.YUVFrame, error) {
	buf := make([]byte, it.chunkSize)
	if _, err := io.ReadFull(it.f, buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return model.YUVFrame{}, io.EOF
		}
		return model.YUVFrame{}, err
	}

	ySize := it.width * it.height
	cSize := ySize / 4
	return model.YUVFrame{
		Width:  it.width,
		Height: it.height,
		Y:      buf[:ySize],
		U:      buf[ySize : ySize+cSize],
		V:      buf[ySize+cSize : ySize+2*cSize],
	}, nil
}
