package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
	"github.com/agentfleet-io/agentfleet/internal/session"
)

var sessionIdleMinutes int

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage lead-agent sessions",
}

var sessionResolveCmd = &cobra.Command{
	Use:   "resolve <agent> <key> [message]",
	Short: "Resolve the session id for an agent/key pair",
	Long: `Resolve the current session id, rotating it when the message carries a
reset trigger (/new, /reset) or the session has idled past its window.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runSessionResolve,
}

var sessionThinkCmd = &cobra.Command{
	Use:   "think <agent> <key> <level>",
	Short: "Set the think level for a session",
	Args:  cobra.ExactArgs(3),
	RunE:  runSessionThink,
}

func init() {
	sessionResolveCmd.Flags().IntVar(&sessionIdleMinutes, "idle", 0, "idle window override in minutes")

	sessionCmd.AddCommand(sessionResolveCmd)
	sessionCmd.AddCommand(sessionThinkCmd)
}

func runSessionResolve(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore()
	if err != nil {
		return err
	}
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	message := ""
	if len(args) == 3 {
		message = args[2]
	}

	if session.IsAbortTrigger(message, settings.Defaults.AbortTriggers) {
		fmt.Println(styleError.Render("abort trigger") + ": message aborts the in-flight turn, no session resolved")
		return nil
	}

	idle := sessionIdleMinutes
	if idle == 0 {
		if cfg := settings.Agents[args[0]]; cfg != nil {
			idle = cfg.IdleMinutes
		}
	}
	if idle == 0 {
		idle = settings.Defaults.IdleMinutes
	}

	res, err := store.Resolve(session.ResolveParams{
		AgentID:       args[0],
		SessionKey:    args[1],
		Message:       message,
		IdleMinutes:   idle,
		ResetTriggers: settings.Defaults.ResetTriggers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("  %s %s\n", styleLabel.Render("session:"), styleValue.Render(res.SessionID))
	fmt.Printf("  %s %v\n", styleLabel.Render("new:"), res.IsNew)
	if res.Message != message && strings.TrimSpace(message) != "" {
		fmt.Printf("  %s %q\n", styleLabel.Render("message:"), res.Message)
	}
	return nil
}

func runSessionThink(cmd *cobra.Command, args []string) error {
	level := models.ThinkLevel(args[2])
	if !level.Valid() {
		return fmt.Errorf("unknown think level %q", args[2])
	}

	store, err := newSessionStore()
	if err != nil {
		return err
	}
	if err := store.SetThinkLevel(args[0], args[1], level); err != nil {
		return err
	}
	fmt.Printf("%s think level %s for %s:%s\n", styleSuccess.Render("Set"), level, args[0], args[1])
	return nil
}
