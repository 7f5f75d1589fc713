package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// 编译时注入
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "channel",
		Short: "Channel server session layer",
		Long: `Accepts game client connections, performs the cipher handshake,
reassembles encrypted frames and dispatches decoded packets to handlers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("channel %s (%s)\n", version, commit)
		},
	}
}
