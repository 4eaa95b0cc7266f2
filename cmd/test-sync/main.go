// ABOUTME: Headless check that the audio render path tracks the playback clock
// ABOUTME: Drives a renderer from a fake device callback through pause, resume and seek
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/harperreed/termvid/internal/media"
	"github.com/harperreed/termvid/internal/metrics"
	"github.com/harperreed/termvid/internal/player"
	"github.com/harperreed/termvid/internal/protocol"
	"github.com/harperreed/termvid/internal/sync"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// toneSource produces a 440Hz sine in s16 and remembers the last pts handed out
type toneSource struct {
	format       media.AudioFormat
	frameSamples int
	start        media.Timestamp
	index        int
	last         atomic.Int64
}

func (s *toneSource) frameDuration() time.Duration {
	return time.Duration(s.frameSamples) * time.Second / time.Duration(s.format.SampleRate)
}

func (s *toneSource) NextFrame() (media.Frame, error) {
	pts := s.start + time.Duration(s.index)*s.frameDuration()
	s.index++

	data := make([]byte, s.frameSamples*s.format.BytesPerFrame())
	for i := 0; i < s.frameSamples; i++ {
		t := pts.Seconds() + float64(i)/float64(s.format.SampleRate)
		v := int16(math.Sin(2*math.Pi*440*t) * 8000)
		for ch := 0; ch < s.format.Channels; ch++ {
			off := (i*s.format.Channels + ch) * 2
			binary.LittleEndian.PutUint16(data[off:], uint16(v))
		}
	}
	s.last.Store(int64(pts))
	return media.Frame{Data: data, PTS: pts}, nil
}

func (s *toneSource) Seek(target media.Timestamp) error {
	s.start, s.index = target, 0
	return nil
}

func (s *toneSource) Flush() {}

func (s *toneSource) Last() media.Timestamp {
	return media.Timestamp(s.last.Load())
}

type step struct {
	at  time.Duration
	cmd protocol.Command
}

var rootCmd = &cobra.Command{
	Use:   "test-sync",
	Short: "Report audio/clock drift through a scripted pause, resume and seek",
	RunE: func(cmd *cobra.Command, args []string) error {
		period := lo.Must(cmd.Flags().GetDuration("period"))
		sample := lo.Must(cmd.Flags().GetDuration("sample"))
		return run(cmd, period, sample)
	},
}

func init() {
	rootCmd.Flags().Duration("period", 20*time.Millisecond, "Fake device callback period")
	rootCmd.Flags().Duration("sample", 250*time.Millisecond, "Report interval")
}

func run(cmd *cobra.Command, period, sample time.Duration) error {
	format := media.AudioFormat{SampleRate: 48000, Channels: 2, Encoding: media.EncodingS16}
	src := &toneSource{format: format, frameSamples: 1024}
	m := metrics.New()

	sender, receiver := protocol.NewChannel()
	renderer := player.NewRenderer(src, receiver, m)
	defer renderer.Close()
	clock := sync.NewClock(nil)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	deviceDone := make(chan struct{})
	go func() {
		defer close(deviceDone)
		buf := make([]byte, int(period.Seconds()*float64(format.SampleRate))*format.BytesPerFrame())
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				renderer.Fill(buf)
			case <-ctx.Done():
				return
			}
		}
	}()

	script := []step{
		{time.Second, protocol.Pause()},
		{2 * time.Second, protocol.Resume()},
		{3 * time.Second, protocol.Seek(30 * time.Second)},
		{4 * time.Second, protocol.Pause()},
		{4500 * time.Millisecond, protocol.Seek(10 * time.Second)},
	}
	const total = 6 * time.Second

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Audio Sync Check ===")
	started := time.Now()
	ticker := time.NewTicker(sample)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-deviceDone
			return ctx.Err()
		case <-ticker.C:
		}

		elapsed := time.Since(started)
		for len(script) > 0 && script[0].at <= elapsed {
			c := script[0].cmd
			script = script[1:]
			switch c.Kind {
			case protocol.KindPause:
				clock.Pause()
			case protocol.KindResume:
				clock.Resume()
			case protocol.KindSeek:
				clock.Seek(c.Target)
			}
			if err := sender.Send(c); err != nil {
				return err
			}
			fmt.Fprintf(out, "%6.2fs  -> %s\n", elapsed.Seconds(), c)
		}

		now := clock.Now()
		audio := src.Last()
		fmt.Fprintf(out, "%6.2fs  clock=%-8s audio=%-8s drift=%+dms muted=%v\n",
			elapsed.Seconds(), now.Round(time.Millisecond), audio.Round(time.Millisecond),
			(audio - now).Milliseconds(), renderer.Muted())

		if elapsed >= total {
			break
		}
	}

	cancel()
	<-deviceDone
	fmt.Fprintf(out, "fills=%.0f silent=%.0f underruns=%.0f\n",
		testutil.ToFloat64(m.AudioFills),
		testutil.ToFloat64(m.AudioSilentFills),
		testutil.ToFloat64(m.AudioUnderruns))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
