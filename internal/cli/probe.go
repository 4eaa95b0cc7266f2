// ABOUTME: probe subcommand printing the streams termvid would play
// ABOUTME: Human-readable summary by default, JSON with --json
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/termvid/internal/decode"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/media"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.SetOut(os.Stdout)
	probeCmd.Flags().BoolP("json", "j", false, "Print the result as JSON")
}

var probeCmd = &cobra.Command{
	Use:   "probe <file>",
	Short: "Show the video and audio streams of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := decode.Probe(cmd.Context(), viper.GetString(key.DecoderFFprobe), args[0])
		if err != nil {
			return err
		}

		if lo.Must(cmd.Flags().GetBool("json")) {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}

		label := lipgloss.NewStyle().Faint(true).Width(10).Render
		cmd.Println(lipgloss.NewStyle().Bold(true).Render(info.Path))
		cmd.Printf("  %s%s\n", label("Duration"), media.FormatClock(info.Duration))
		cmd.Printf("  %s%s\n", label("Video"), describeVideo(info.Video))
		cmd.Printf("  %s%s\n", label("Audio"), describeAudio(info.Audio))
		return nil
	},
}

func describeVideo(v *decode.VideoStream) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprintf("%s %dx%d @ %.2f fps", v.Codec, v.Width, v.Height, v.FrameRate)
}

func describeAudio(a *decode.AudioStream) string {
	if a == nil {
		return "none"
	}
	return fmt.Sprintf("%s %dHz %dch", a.Codec, a.SampleRate, a.Channels)
}
