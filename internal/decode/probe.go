// ABOUTME: Media probing through ffprobe JSON output
// ABOUTME: Reports duration plus the first video and audio stream parameters
package decode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/media"
)

// DefaultFrameRate is used when a video stream reports no usable rate
const DefaultFrameRate = 25.0

// VideoStream describes the first video track
type VideoStream struct {
	Codec     string
	Width     int
	Height    int
	FrameRate float64
}

// AudioStream describes the first audio track
type AudioStream struct {
	Codec      string
	SampleRate int
	Channels   int
}

// Info is the probed description of a media file
type Info struct {
	Path     string
	Duration media.Timestamp
	Video    *VideoStream
	Audio    *AudioStream
}

// ffprobeOutput mirrors the subset of `ffprobe -print_format json` we read
type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		SampleRate   string `json:"sample_rate"`
		Channels     int    `json:"channels"`
		Disposition  struct {
			AttachedPic int `json:"attached_pic"`
		} `json:"disposition"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe inspects path with ffprobe. A missing file yields an OpenError
// wrapping media.ErrNotFound; a file with no decodable stream yields one
// wrapping media.ErrUnsupported.
func Probe(ctx context.Context, ffprobe, path string) (Info, error) {
	if _, err := filesystem.API().Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, &media.OpenError{Path: path, Err: media.ErrNotFound}
		}
		return Info{}, &media.OpenError{Path: path, Err: err}
	}

	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Info{}, &media.OpenError{
				Path: path,
				Err:  fmt.Errorf("%w: %s", media.ErrUnsupported, strings.TrimSpace(string(exitErr.Stderr))),
			}
		}
		return Info{}, &media.OpenError{Path: path, Err: fmt.Errorf("failed to run ffprobe: %w", err)}
	}

	info, err := parseProbe(path, out)
	if err != nil {
		return Info{}, &media.OpenError{Path: path, Err: err}
	}
	return info, nil
}

// parseProbe converts ffprobe JSON into Info
func parseProbe(path string, data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := Info{Path: path}
	if secs, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}

	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			if info.Video != nil || s.Disposition.AttachedPic != 0 || s.Width == 0 || s.Height == 0 {
				continue
			}
			rate := parseRate(s.AvgFrameRate)
			if rate <= 0 {
				rate = parseRate(s.RFrameRate)
			}
			if rate <= 0 {
				rate = DefaultFrameRate
			}
			info.Video = &VideoStream{
				Codec:     s.CodecName,
				Width:     s.Width,
				Height:    s.Height,
				FrameRate: rate,
			}
		case "audio":
			if info.Audio != nil {
				continue
			}
			rate, _ := strconv.Atoi(s.SampleRate)
			info.Audio = &AudioStream{
				Codec:      s.CodecName,
				SampleRate: rate,
				Channels:   s.Channels,
			}
		}
	}

	if info.Video == nil && info.Audio == nil {
		return Info{}, media.ErrUnsupported
	}
	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001"
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
