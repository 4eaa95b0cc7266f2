// ABOUTME: Root cobra command playing a media file in the terminal
// ABOUTME: Binds playback, audio, remote and logging flags onto viper keys
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/termvid/internal/app"
	"github.com/harperreed/termvid/internal/key"
	"github.com/harperreed/termvid/internal/log"
	"github.com/harperreed/termvid/internal/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.Flags().DurationP("seek-step", "s", 5*time.Second, "Distance jumped by the seek keys")
	lo.Must0(viper.BindPFlag(key.PlayerSeekStep, rootCmd.Flags().Lookup("seek-step")))

	rootCmd.Flags().BoolP("no-audio", "A", false, "Play video only")

	rootCmd.Flags().BoolP("remote", "r", false, "Serve the websocket remote control and /metrics")
	lo.Must0(viper.BindPFlag(key.RemoteEnabled, rootCmd.Flags().Lookup("remote")))

	rootCmd.Flags().IntP("remote-port", "p", 8928, "Remote control listen port")
	lo.Must0(viper.BindPFlag(key.RemotePort, rootCmd.Flags().Lookup("remote-port")))

	rootCmd.Flags().Bool("mdns", false, "Advertise the remote control over mDNS")
	lo.Must0(viper.BindPFlag(key.RemoteMDNS, rootCmd.Flags().Lookup("mdns")))

	rootCmd.PersistentFlags().StringP("log-level", "L", "info", "Log level: error, warn, info, debug")
	lo.Must0(viper.BindPFlag(key.LogsLevel, rootCmd.PersistentFlags().Lookup("log-level")))
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warn", "info", "debug", "trace"}, cobra.ShellCompDirectiveNoFileComp
	}))
}

// errMissingFile is returned when no media path is given
var errMissingFile = errors.New("expected one argument: the media file to play")

// rootCmd plays one file
var rootCmd = &cobra.Command{
	Use:           version.Binary + " <file>",
	Short:         "Play video files in the terminal with synchronized audio",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if lo.Must(cmd.Flags().GetBool("version")) {
			cmd.Println(version.String())
			return nil
		}
		if len(args) == 0 {
			return errMissingFile
		}
		if lo.Must(cmd.Flags().GetBool("no-audio")) {
			viper.Set(key.AudioEnabled, false)
		}

		config, err := app.ConfigFromViper(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.New(config).Run(ctx)
	},
}

// Execute runs the command line
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
