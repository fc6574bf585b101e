package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "msgboard",
	Short:         "A small message board with accounts, replies, likes and notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MSGBOARD_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(serveCmd, useraddCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "msgboard:", err)
		os.Exit(1)
	}
}
