package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/tui"
)

var watchEventsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Render the cluster event feed live",
	Long: `Subscribe to the harness event feed and render bootstrap progress,
node state, and benchmark throughput in a live terminal view.

The view is read-only; quitting it never touches the cluster. Run
'relay-harness up' (and 'bench --events ...') with the feed enabled
for something to watch.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchEventsAddr, "events", events.DefaultFeedConfig().Address, "Event feed address to subscribe to")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := events.DefaultFeedConfig()
	cfg.Address = watchEventsAddr

	// The view owns the terminal; log lines would corrupt it.
	sub, err := events.NewFeedSubscriber(events.NewMangosSocketFactory(), cfg, logging.NewNopLogger())
	if err != nil {
		return err
	}
	if err := sub.Start(); err != nil {
		return fmt.Errorf("connect to event feed: %w", err)
	}
	defer sub.Stop()

	p := tea.NewProgram(tui.New(sub.Events()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch view: %w", err)
	}
	return nil
}
