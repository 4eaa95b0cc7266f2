// ABOUTME: Transport command vocabulary shared by the controller and audio renderer
// ABOUTME: Pause, Resume, Seek and Resize values copied across the goroutine boundary
package protocol

import (
	"fmt"

	"github.com/harperreed/termvid/internal/media"
)

// Kind identifies a transport command
type Kind int

const (
	KindPause Kind = iota
	KindResume
	KindSeek
	KindResize
)

func (k Kind) String() string {
	switch k {
	case KindPause:
		return "pause"
	case KindResume:
		return "resume"
	case KindSeek:
		return "seek"
	case KindResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Command is an immutable transport command. Target is set for Seek,
// Width and Height for Resize.
type Command struct {
	Kind   Kind
	Target media.Timestamp
	Width  int
	Height int
}

// Pause stops playback and freezes the clock.
func Pause() Command { return Command{Kind: KindPause} }

// Resume restarts playback from the frozen position.
func Resume() Command { return Command{Kind: KindResume} }

// Seek jumps to target and resumes playback.
func Seek(target media.Timestamp) Command {
	return Command{Kind: KindSeek, Target: target}
}

// Resize reports a new terminal size in cells.
func Resize(width, height int) Command {
	return Command{Kind: KindResize, Width: width, Height: height}
}

func (c Command) String() string {
	switch c.Kind {
	case KindSeek:
		return fmt.Sprintf("seek(%s)", media.FormatClock(c.Target))
	case KindResize:
		return fmt.Sprintf("resize(%dx%d)", c.Width, c.Height)
	default:
		return c.Kind.String()
	}
}
