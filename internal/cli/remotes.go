// ABOUTME: remotes subcommand browsing the network for running players
// ABOUTME: Lists every instance advertising the remote control over mDNS
package cli

import (
	"os"
	"strings"
	"time"

	"github.com/harperreed/termvid/internal/discovery"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(remotesCmd)
	remotesCmd.SetOut(os.Stdout)
	remotesCmd.Flags().DurationP("timeout", "t", 3*time.Second, "How long to listen for answers")
}

var remotesCmd = &cobra.Command{
	Use:   "remotes",
	Short: "List players advertising remote control on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout := lo.Must(cmd.Flags().GetDuration("timeout"))

		found, err := discovery.Browse(cmd.Context(), timeout)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			cmd.Println("No players found")
			return nil
		}
		for _, inst := range found {
			cmd.Printf("%s\t%s\t%s\n", inst.Name, inst.Addr(), strings.Join(inst.Info, " "))
		}
		return nil
	},
}
