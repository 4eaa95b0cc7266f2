// ABOUTME: version subcommand
// ABOUTME: Prints the product version and build platform
package cli

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/termvid/internal/version"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Display only the version string")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(version.Version)
			return
		}

		faint := lipgloss.NewStyle().Faint(true).Render
		bold := lipgloss.NewStyle().Bold(true).Render

		cmd.Println(bold(version.Product))
		cmd.Println()
		cmd.Printf("  %s   %s\n", faint("Version"), bold(version.Version))
		cmd.Printf("  %s  %s\n", faint("Platform"), bold(runtime.GOOS+"/"+runtime.GOARCH))
		cmd.Printf("  %s        %s\n", faint("Go"), bold(runtime.Version()))
	},
}
