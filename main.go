// ABOUTME: Entry point for termvid
// ABOUTME: Loads configuration and hands off to the command line
package main

import (
	"fmt"
	"os"

	"github.com/harperreed/termvid/internal/cli"
	"github.com/harperreed/termvid/internal/config"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "termvid:", err)
		os.Exit(1)
	}
}
