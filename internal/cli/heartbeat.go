package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/heartbeat"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

var (
	heartbeatEvery  string
	heartbeatPrompt string
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Manage agent heartbeats",
	Long: `Configure unattended check-in turns. The daemon re-reads settings on
change, so enabling or disabling a heartbeat here takes effect on its
next tick without a restart.`,
}

var heartbeatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List heartbeat configuration per agent",
	RunE:  runHeartbeatList,
}

var heartbeatEnableCmd = &cobra.Command{
	Use:   "enable <agent>",
	Short: "Enable the heartbeat for an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeartbeatEnable,
}

var heartbeatDisableCmd = &cobra.Command{
	Use:   "disable <agent>",
	Short: "Disable the heartbeat for an agent",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeartbeatDisable,
}

func init() {
	heartbeatEnableCmd.Flags().StringVar(&heartbeatEvery, "every", "30m", "interval, e.g. 30m, 2h, 90s")
	heartbeatEnableCmd.Flags().StringVar(&heartbeatPrompt, "prompt", "", "override the default check-in prompt")

	heartbeatCmd.AddCommand(heartbeatDisableCmd)
	heartbeatCmd.AddCommand(heartbeatEnableCmd)
	heartbeatCmd.AddCommand(heartbeatListCmd)
}

func runHeartbeatList(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	if len(settings.Agents) == 0 {
		fmt.Println("No agents configured.")
		return nil
	}

	ids := make([]string, 0, len(settings.Agents))
	for id := range settings.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := settings.Agents[id]
		if cfg.Heartbeat == nil {
			fmt.Printf("  %-20s %s\n", id, styleHint.Render("no heartbeat"))
			continue
		}

		every := cfg.Heartbeat.Every
		if every == "" {
			every = "30m"
		}
		if _, ok := heartbeat.ParseEvery(every, time.Minute); !ok {
			fmt.Printf("  %-20s %s\n", id, styleHint.Render("disabled (every: "+every+")"))
			continue
		}
		line := fmt.Sprintf("  %-20s every %s", id, styleValue.Render(every))
		if cfg.Channel == "" {
			line += "  " + styleError.Render("no delivery channel")
		}
		fmt.Println(line)
	}
	return nil
}

func runHeartbeatEnable(cmd *cobra.Command, args []string) error {
	if _, ok := heartbeat.ParseEvery(heartbeatEvery, time.Minute); !ok {
		return fmt.Errorf("invalid interval %q", heartbeatEvery)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	cfg := settings.Agents[args[0]]
	if cfg == nil {
		cfg = &models.AgentConfig{}
		settings.Agents[args[0]] = cfg
	}
	cfg.Heartbeat = &models.HeartbeatConfig{Every: heartbeatEvery, Prompt: heartbeatPrompt}

	if err := config.SaveSettings(settings); err != nil {
		return err
	}
	fmt.Printf("%s heartbeat for %s every %s\n", styleSuccess.Render("Enabled"), args[0], heartbeatEvery)
	if cfg.Channel == "" {
		fmt.Println(styleHint.Render("Note: the agent has no delivery channel; ticks will be skipped until one is set."))
	}
	return nil
}

func runHeartbeatDisable(cmd *cobra.Command, args []string) error {
	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}

	cfg := settings.Agents[args[0]]
	if cfg == nil || cfg.Heartbeat == nil {
		fmt.Printf("Agent %s has no heartbeat configured.\n", args[0])
		return nil
	}
	cfg.Heartbeat = nil

	if err := config.SaveSettings(settings); err != nil {
		return err
	}
	fmt.Printf("%s heartbeat for %s\n", styleSuccess.Render("Disabled"), args[0])
	return nil
}
