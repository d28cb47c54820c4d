package ffmpeg

import (
	"bufio"
	"strings"
	"testing"
	"time"
)

const sampleOutput = `[FORMAT]
filename=alien.mkv
duration=6957.000000
bit_rate=1500000
[/FORMAT]
[STREAM]
index=0
codec_type=video
width=1920
height=1080
[/STREAM]
[STREAM]
index=1
codec_type=audio
[/STREAM]
`

func TestParseOutput(t *testing.T) {
	info, err := parseOutput(bufio.NewReader(strings.NewReader(sampleOutput)))
	if err != nil {
		t.Fatal(err)
	}
	if info.Format["filename"] != "alien.mkv" {
		t.Errorf("format: %v", info.Format)
	}
	if len(info.Streams) != 2 {
		t.Fatalf("streams: %v", info.Streams)
	}
	bitrate, err := info.Bitrate()
	if err != nil || bitrate != 1500000 {
		t.Errorf("bitrate %d, err %v", bitrate, err)
	}
	duration, err := info.Duration()
	if err != nil || duration != 6957*time.Second {
		t.Errorf("duration %v, err %v", duration, err)
	}
	if res := info.Resolution(); res != "1920x1080" {
		t.Errorf("resolution %q", res)
	}
}

func TestDurationNA(t *testing.T) {
	info := &Info{Format: map[string]string{"duration": "N/A"}}
	if _, err := info.Duration(); err == nil {
		t.Error("expected error")
	}
}

func TestResolutionNoVideoStream(t *testing.T) {
	info := &Info{Streams: []map[string]string{{"codec_type": "audio"}}}
	if res := info.Resolution(); res != "" {
		t.Errorf("resolution %q", res)
	}
}

func TestParseOutputUnorderedStreams(t *testing.T) {
	const out = "[STREAM]\nindex=1\n[/STREAM]\n"
	if _, err := parseOutput(bufio.NewReader(strings.NewReader(out))); err == nil {
		t.Error("expected error")
	}
}
