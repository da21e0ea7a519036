package pipeline

import (
	"context"
	"os"

	"github.com/ethan/videotester-go/internal/model"
)

// FakePipeline is a MediaPipeline test double that writes correctly named
// files holding the test-supplied bytes instead of shelling out to a real encoder/
// decoder, so internal/engine's orchestration can be exercised without
// GStreamer installed. Caps and file bytes are supplied by the test up
// front via the exported fields.
type FakePipeline struct {
	Caps           model.SessionCaps
	CompressedData []byte
	YUVData        []byte
	OriginalYUV    []byte
	RefCompressed  []byte
	RefYUV         []byte

	StartServerErr error
	AddMediaErr    error
	ReceiveErr     error
	ReferenceErr   error

	StartedPort int
	AddedMedia  []AddMediaRequest
}

func (f *FakePipeline) StartServer(_ context.Context, port int) error {
	if f.StartServerErr != nil {
		return f.StartServerErr
	}
	f.StartedPort = port
	return nil
}

func (f *FakePipeline) AddMedia(_ context.Context, req AddMediaRequest) error {
	if f.AddMediaErr != nil {
		return f.AddMediaErr
	}
	f.AddedMedia = append(f.AddedMedia, req)
	return nil
}

func (f *FakePipeline) Receive(_ context.Context, req ReceiveRequest) (ReceiveResult, error) {
	if f.ReceiveErr != nil {
		return ReceiveResult{}, f.ReceiveErr
	}
	compressed := req.OutPrefix + "." + string(req.Codec)
	yuvPath := req.OutPrefix + ".yuv"
	if err := writeFile(compressed, f.CompressedData); err != nil {
		return ReceiveResult{}, err
	}
	if err := writeFile(yuvPath, f.YUVData); err != nil {
		return ReceiveResult{}, err
	}
	return ReceiveResult{CompressedPath: compressed, YUVPath: yuvPath, Caps: f.Caps}, nil
}

func (f *FakePipeline) MakeReference(_ context.Context, req ReferenceRequest) (ReferenceResult, error) {
	if f.ReferenceErr != nil {
		return ReferenceResult{}, f.ReferenceErr
	}
	originalYUV := req.OutPrefix + "_ref_original.yuv"
	compressed := req.OutPrefix + "_ref." + string(req.Codec)
	yuvPath := req.OutPrefix + "_ref.yuv"
	if err := writeFile(originalYUV, f.OriginalYUV); err != nil {
		return ReferenceResult{}, err
	}
	if err := writeFile(compressed, f.RefCompressed); err != nil {
		return ReferenceResult{}, err
	}
	if err := writeFile(yuvPath, f.RefYUV); err != nil {
		return ReferenceResult{}, err
	}
	return ReferenceResult{OriginalYUVPath: originalYUV, CompressedPath: compressed, YUVPath: yuvPath}, nil
}

func (f *FakePipeline) Close() error { return nil }

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
