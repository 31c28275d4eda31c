package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/worklog"
)

var (
	logsSince  int
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs <project> <slug>",
	Short: "Show a workspace's event stream",
	Long: `Show the combined subprocess output and lifecycle events of a
workspace. The printed cursor can be passed back with --since to fetch
only newer events; --follow polls until interrupted.`,
	Args: cobra.ExactArgs(2),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntVar(&logsSince, "since", 0, "cursor from a previous fetch")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "poll for new events until interrupted")
}

func runLogs(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	cursor := logsSince
	for {
		res, err := mgr.FetchLogs(args[0], args[1], cursor)
		if err != nil {
			return err
		}
		for _, e := range res.Events {
			printEvent(e)
		}
		cursor = res.Cursor

		if !logsFollow {
			fmt.Println(styleHint.Render(fmt.Sprintf("cursor: %d", cursor)))
			return nil
		}

		// Stop following once the run is over and the stream is drained.
		if len(res.Events) == 0 {
			info, err := mgr.Status(args[0], args[1])
			if err != nil {
				return err
			}
			if info.Status != models.StatusRunning {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func printEvent(e worklog.Event) {
	switch e.Kind {
	case worklog.KindSkip:
		return
	case worklog.KindStderr:
		fmt.Printf("%s %s\n", badgeYellow.Render("stderr"), e.Text)
	case worklog.KindToolCall:
		fmt.Printf("%s %s\n", badgeRunning.Render("tool"), eventLine(e))
	case worklog.KindToolOutput:
		fmt.Printf("%s %s\n", styleHint.Render("  out"), eventLine(e))
	case worklog.KindDiff:
		fmt.Printf("%s %s\n", badgeYellow.Render("diff"), eventLine(e))
	case worklog.KindSession:
		fmt.Printf("%s %s\n", styleHint.Render("session"), eventLine(e))
	case worklog.KindUser:
		fmt.Printf("%s %s\n", styleLabel.Render("user"), eventLine(e))
	default:
		fmt.Println(eventLine(e))
	}
}

func eventLine(e worklog.Event) string {
	if e.Text != "" {
		return e.Text
	}
	if t, ok := e.Data["type"].(string); ok {
		return t
	}
	return string(e.Kind)
}
