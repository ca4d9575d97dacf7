package myaudio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asterisksounds/asterisk-sound-bot/internal/testutil"
)

func TestMimeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"asterisk-core-sounds-en-gsm/vm-goodbye.mp3", "audio/mpeg"},
		{"dir/VM-GOODBYE.MP3", "audio/mpeg"},
		{"dir/beep.wav", "audio/wav"},
		{"dir/beep.ogg", "audio/ogg"},
		{"dir/beep.oga", "audio/ogg"},
		{"dir/beep.flac", "audio/flac"},
		{"dir/beep.gsm", DefaultMimeType},
		{"dir/beep.ulaw", DefaultMimeType},
		{"dir/beep.sln16", DefaultMimeType},
		{"no-extension", DefaultMimeType},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MimeType(tt.key))
		})
	}
}

func TestGetFileExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mp3", GetFileExtension("audio/mpeg"))
	assert.Equal(t, "ogg", GetFileExtension("audio/ogg"))
	assert.Equal(t, "flac", GetFileExtension("audio/flac"))
	assert.Equal(t, "wav", GetFileExtension(DefaultMimeType))
	assert.Equal(t, "wav", GetFileExtension("application/octet-stream"))
}

func TestInspectWAV(t *testing.T) {
	t.Parallel()

	// One second of 8 kHz mono audio peaking at half scale
	samples := make([]int, 8000)
	for i := range samples {
		samples[i] = int(16384 * math.Sin(2*math.Pi*float64(i)/80))
	}
	samples[100] = 16384

	data, err := testutil.EncodeWAV(samples, 8000, 16, 1)
	require.NoError(t, err)

	info, err := Inspect(data)
	require.NoError(t, err)

	assert.Equal(t, "wav", info.Format)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 1, info.NumChannels)
	assert.Equal(t, 16, info.BitDepth)
	assert.Equal(t, 8000, info.TotalSamples)
	assert.Equal(t, time.Second, info.Duration)
	assert.InDelta(t, -6.02, info.PeakDBFS, 0.01)
}

func TestInspectSilence(t *testing.T) {
	t.Parallel()

	data, err := testutil.EncodeWAV(make([]int, 1600), 16000, 16, 2)
	require.NoError(t, err)

	info, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, 2, info.NumChannels)
	assert.Equal(t, 800, info.TotalSamples)
	assert.Equal(t, 50*time.Millisecond, info.Duration)
	assert.Zero(t, info.PeakDBFS)
}

func TestInspectNonWAV(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("ID3\x03\x00 not a wav"), []byte("RIFF")} {
		info, err := Inspect(data)
		require.NoError(t, err)
		assert.Equal(t, FormatUnknown, info.Format)
	}
}
