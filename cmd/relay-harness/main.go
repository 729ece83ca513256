// relay-harness bootstraps and benchmarks a local cluster of relayd
// consensus KV worker processes. `up` brings a cluster to an elected
// leader and holds it, `bench` drives load against the leader, `watch`
// renders the live event feed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaykv/harness/pkg/logging"
)

const version = "0.1.0"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "relay-harness",
	Short: "Bootstrap and benchmark a relayd KV cluster",
	Long: `relay-harness supervises a local cluster of relayd worker processes:
it builds the worker binary when missing, spawns the nodes, wires the
peer mesh over their control-plane API, waits for a leader election, and
drives put/get benchmarks against the elected leader.

Progress is published on an event feed that 'watch' renders live, and a
status listener exposes health probes and prometheus metrics while the
cluster is up.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the harness version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("relay-harness %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the command's structured logger. It writes JSON lines
// to stderr; stdout is reserved for the human-readable reports.
func newLogger() logging.Logger {
	l := logging.NewDefaultLogger()
	l.SetLevel(logging.ParseLevel(logLevel))
	return l
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
