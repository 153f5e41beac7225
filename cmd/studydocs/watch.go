package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/studydocs/internal/watch"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print document changes as they happen",
	Long: `Watch the documents folder and print each document that is created,
modified or removed. Hidden and excluded paths are ignored.

Press Ctrl+C to stop.

Examples:
  studydocs watch --root ~/StudyDocs`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var (
	// Header style - bold bright cyan
	watchHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("51")).
				Bold(true)

	// Timestamps and secondary info
	watchDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	createdStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	modifiedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	removedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	return withApp(cmd, func(ctx context.Context, a *app) error {
		w, err := startWatcher(ctx, a)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", a.docs.Root(), err)
		}
		defer w.Stop()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, watchHeaderStyle.Render("Watching "+w.Root()))
		printChanges(ctx, out, w.Events())
		return nil
	})
}

// printChanges writes one line per event until events is closed or ctx is
// done.
func printChanges(ctx context.Context, out io.Writer, events <-chan watch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintln(out, formatChange(ev))
		}
	}
}

func formatChange(ev watch.Event) string {
	path := ev.Path
	if ev.Dir {
		path += "/"
	}
	return fmt.Sprintf("%s %s %s",
		watchDimStyle.Render(ev.Time.Format("15:04:05")),
		opStyle(ev.Op).Width(8).Render(ev.Op.String()),
		path)
}

func opStyle(op watch.Op) lipgloss.Style {
	switch op {
	case watch.Created:
		return createdStyle
	case watch.Modified:
		return modifiedStyle
	default:
		return removedStyle
	}
}
