// Command wisckv-client is the interactive REPL front end for a
// running wisckv-server, grounded in original_source's wisc_client.rs
// + client.rs rustyline REPL.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kvforge/wisckv/internal/replclient"
)

func main() {
	var addr string
	var historyPath string

	root := &cobra.Command{
		Use:   "wisckv-client",
		Short: "Interactive client for a wisckv server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, historyPath)
		},
	}
	root.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:4000", "server address")
	root.Flags().StringVar(&historyPath, "history", defaultHistoryPath(), "readline history file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wisckv_history"
	}
	return filepath.Join(home, ".wisckv_history")
}

func run(addr, historyPath string) error {
	client, err := replclient.Dial(addr, historyPath)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.Run(os.Stdout)
}
