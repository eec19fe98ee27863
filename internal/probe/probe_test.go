package probe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseStreams(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "audio", "duration": "12.0"},
			{"codec_type": "video", "width": 1080, "height": 1920, "duration": "12.480000", "r_frame_rate": "30000/1001"},
			{"codec_type": "video", "width": 320, "height": 240, "duration": "1.0", "r_frame_rate": "1/1"}
		]
	}`)

	info, err := ParseStreams(data)
	if err != nil {
		t.Fatalf("ParseStreams failed: %v", err)
	}
	if info.Width != 1080 || info.Height != 1920 {
		t.Errorf("expected first video stream 1080x1920, got %dx%d", info.Width, info.Height)
	}
	if math.Abs(info.Duration-12.48) > 1e-9 {
		t.Errorf("expected 12.48s, got %f", info.Duration)
	}
	if math.Abs(info.FPS-29.97) > 0.01 {
		t.Errorf("expected ~29.97 fps, got %f", info.FPS)
	}
	if !info.HasAudio {
		t.Error("expected HasAudio")
	}
}

func TestParseStreamsWithoutVideo(t *testing.T) {
	_, err := ParseStreams([]byte(`{"streams": [{"codec_type": "audio"}]}`))
	if !errors.Is(err, ErrNoVideoStream) {
		t.Errorf("expected ErrNoVideoStream, got %v", err)
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"60000/1001", 59.94005994005994},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseFrameRate(tt.in); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func fakeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really mp4"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProbeFallsBackToContainerDuration(t *testing.T) {
	path := fakeFile(t)
	calls := 0
	p := &FFprobe{
		Binary: "ffprobe",
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls++
			joined := strings.Join(args, " ")
			if strings.Contains(joined, "format=duration") {
				return []byte(`{"format": {"duration": "41.250000"}}`), nil
			}
			return []byte(`{"streams": [{"codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30/1"}]}`), nil
		},
	}

	info, err := p.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 ffprobe calls, got %d", calls)
	}
	if info.Duration != 41.25 {
		t.Errorf("expected container duration 41.25, got %f", info.Duration)
	}
	if info.HasAudio {
		t.Error("expected no audio")
	}
}

func TestProbeSkipsFallbackWhenStreamHasDuration(t *testing.T) {
	path := fakeFile(t)
	calls := 0
	p := &FFprobe{
		Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls++
			return []byte(`{"streams": [{"codec_type": "video", "width": 10, "height": 10, "duration": "3.5"}]}`), nil
		},
	}

	if _, err := p.Probe(context.Background(), path); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single ffprobe call, got %d", calls)
	}
}

func TestProbeErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		out     string
		runErr  error
		wantErr error
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.mp4") },
			wantErr: os.ErrNotExist,
		},
		{
			name:    "no video stream",
			path:    fakeFile,
			out:     `{"streams": [{"codec_type": "audio", "duration": "4"}]}`,
			wantErr: ErrNoVideoStream,
		},
		{
			name:    "no duration anywhere",
			path:    fakeFile,
			out:     `{"streams": [{"codec_type": "video", "width": 2, "height": 2}], "format": {}}`,
			wantErr: ErrNoDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FFprobe{Run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
				return []byte(tt.out), tt.runErr
			}}
			_, err := p.Probe(context.Background(), tt.path(t))

			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *probe.Error, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
