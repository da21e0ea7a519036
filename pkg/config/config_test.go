package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethan/videotester-go/pkg/config"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "session.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadParsesRecognizedKeys(t *testing.T) {
	path := writeTempConfig(t, `
iface = eth0
ip = 10.0.0.5
port = 9000
video = clip1
codec = h264
bitrate = 750
framerate = 30
protocol = tcp
qos = latency, jitter, plr
bs = gop
vq = psnr,ssim
temp = /tmp/videotester
unknown_key = ignored
`)

	opts, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "eth0", opts.Iface)
	require.Equal(t, "10.0.0.5", opts.IP)
	require.Equal(t, 9000, opts.Port)
	require.Equal(t, config.CodecH264, opts.Codec)
	require.Equal(t, 750, opts.Bitrate)
	require.Equal(t, 30, opts.Framerate)
	require.Equal(t, config.ProtocolTCP, opts.Protocol)
	require.Equal(t, []string{"latency", "jitter", "plr"}, opts.QoS)
	require.Equal(t, []string{"gop"}, opts.BS)
	require.Equal(t, []string{"psnr", "ssim"}, opts.VQ)
	require.Equal(t, "/tmp/videotester", opts.Temp)

	require.NoError(t, opts.Validate())
}

func TestValidateRejectsUnsupportedCodec(t *testing.T) {
	path := writeTempConfig(t, "iface=eth0\nip=10.0.0.5\nvideo=clip1\ncodec=av1\n")
	opts, err := config.Load(path)
	require.NoError(t, err)
	require.Error(t, opts.Validate())
}
