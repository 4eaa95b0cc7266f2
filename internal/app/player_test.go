// ABOUTME: Tests for player application orchestration
// ABOUTME: Tests configuration loading, open failures and a scripted session with stub ffmpeg
package app

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	stdsync "sync"
	"testing"
	"time"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/sync"
	"github.com/harperreed/termvid/internal/ui"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closingTerminal adds Inject and Close to the scripted terminal. Inject
// may arrive from another goroutine.
type closingTerminal struct {
	*scriptedTerminal
	mu     stdsync.Mutex
	closed bool
}

func (c *closingTerminal) Poll(timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scriptedTerminal.Poll(timeout)
}

func (c *closingTerminal) Read() (ui.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scriptedTerminal.Read()
}

func (c *closingTerminal) Inject(ev ui.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.push(ev)
	return nil
}

func (c *closingTerminal) Close() error {
	c.closed = true
	return nil
}

func stubTool(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub tools need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestNewPlayer(t *testing.T) {
	a := New(Config{Path: "clip.mp4"})
	b := New(Config{Path: "clip.mp4"})

	assert.NotEmpty(t, a.Session())
	assert.NotEqual(t, a.Session(), b.Session())
	assert.NotNil(t, a.Metrics())
}

func TestConfigFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set(key.PlayerSeekStep, 10*time.Second)
	viper.Set(key.AudioEncoding, "f32")
	viper.Set(key.AudioSampleRate, 44100)
	viper.Set(key.AudioChannels, 2)
	viper.Set(key.RemoteEnabled, true)
	viper.Set(key.RemotePort, 9000)

	cfg, err := ConfigFromViper("movie.mkv")
	require.NoError(t, err)

	assert.Equal(t, "movie.mkv", cfg.Path)
	assert.Equal(t, 10*time.Second, cfg.SeekStep)
	assert.Equal(t, media.AudioFormat{SampleRate: 44100, Channels: 2, Encoding: media.EncodingF32}, cfg.AudioFormat)
	assert.True(t, cfg.Remote)
	assert.Equal(t, 9000, cfg.RemotePort)
}

func TestConfigFromViperRejectsEncoding(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set(key.AudioEncoding, "u8")

	_, err := ConfigFromViper("movie.mkv")
	assert.Error(t, err)
}

func TestRunMissingFile(t *testing.T) {
	filesystem.SetMemMapFs()
	t.Cleanup(filesystem.SetOsFs)

	p := New(Config{Path: "/nowhere/clip.mp4"})
	p.openTerminal = func() terminal {
		t.Fatal("terminal opened for a missing file")
		return nil
	}

	err := p.Run(context.Background())

	var openErr *media.OpenError
	require.ErrorAs(t, err, &openErr)
	assert.ErrorIs(t, err, media.ErrNotFound)
}

func TestRunAudioOnlyWithAudioDisabled(t *testing.T) {
	filesystem.SetOsFs()
	file := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(file, []byte("id3"), 0o644))
	ffprobe := stubTool(t, "ffprobe", `echo '{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}],"format":{"duration":"12.5"}}'`)

	p := New(Config{Path: file, FFprobe: ffprobe, AudioEnabled: false})
	p.openTerminal = func() terminal {
		t.Fatal("terminal opened with nothing to play")
		return nil
	}

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, media.ErrUnsupported)
}

func TestRunScriptedSession(t *testing.T) {
	filesystem.SetOsFs()
	file := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("mp4"), 0o644))
	ffprobe := stubTool(t, "ffprobe", `echo '{"streams":[{"codec_type":"video","codec_name":"h264","width":320,"height":240,"avg_frame_rate":"25/1"}],"format":{"duration":"2"}}'`)
	ffmpeg := stubTool(t, "ffmpeg", "head -c 100000 /dev/zero")

	term := &closingTerminal{scriptedTerminal: &scriptedTerminal{
		clock:  sync.NewFakeTime(time.Unix(0, 0)),
		width:  80,
		height: 24,
	}}
	term.push(ui.KeyEvent("space"), ui.KeyEvent("q"))

	p := New(Config{Path: file, FFprobe: ffprobe, FFmpeg: ffmpeg, MinWait: time.Millisecond})
	p.openTerminal = func() terminal { return term }

	require.NoError(t, p.Run(context.Background()))

	assert.True(t, term.closed)
	require.NotEmpty(t, term.views)
	overlay := term.views[0].Overlay
	assert.Equal(t, "clip.mp4", overlay.Title)
	assert.Equal(t, "25 fps 320x240", overlay.Stream)
	assert.Equal(t, "paused", overlay.State)
}

func TestRunCancelledContextQuits(t *testing.T) {
	filesystem.SetOsFs()
	file := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(file, []byte("mp4"), 0o644))
	ffprobe := stubTool(t, "ffprobe", `echo '{"streams":[{"codec_type":"video","width":64,"height":48,"avg_frame_rate":"25/1"}],"format":{"duration":"1"}}'`)
	ffmpeg := stubTool(t, "ffmpeg", "exit 0")

	term := &closingTerminal{scriptedTerminal: &scriptedTerminal{
		clock:  sync.NewFakeTime(time.Unix(0, 0)),
		width:  80,
		height: 24,
	}}

	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{Path: file, FFprobe: ffprobe, FFmpeg: ffmpeg})
	p.openTerminal = func() terminal {
		cancel()
		return term
	}

	require.NoError(t, p.Run(ctx))
	assert.True(t, term.closed)
}
