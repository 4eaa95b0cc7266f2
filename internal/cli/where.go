// ABOUTME: where subcommand printing the config and log directories
// ABOUTME: Flags select a single path for use in scripts
package cli

import (
	"os"

	"github.com/harperreed/termvid/internal/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type whereTarget struct {
	name  string
	where func() string
	flag  string
}

var wherePaths = []whereTarget{
	{"Config", where.Config, "config"},
	{"Logs", where.Logs, "logs"},
}

func init() {
	rootCmd.AddCommand(whereCmd)
	for _, n := range wherePaths {
		whereCmd.Flags().Bool(n.flag, false, n.name+" path")
	}
	whereCmd.MarkFlagsMutuallyExclusive(lo.Map(wherePaths, func(t whereTarget, _ int) string {
		return t.flag
	})...)
	whereCmd.SetOut(os.Stdout)
}

var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Display the config and log directories",
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range wherePaths {
			if lo.Must(cmd.Flags().GetBool(n.flag)) {
				cmd.Println(n.where())
				return
			}
		}
		for _, n := range wherePaths {
			cmd.Printf("%s: %s\n", n.name, n.where())
		}
	},
}
