package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentfleet-io/agentfleet/internal/config"
	"github.com/agentfleet-io/agentfleet/internal/models"
)

var projectBranch string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage the projects registry",
	Long:  `Manage the registry mapping project ids to repository checkouts.`,
}

var projectAddCmd = &cobra.Command{
	Use:   "add <id> <path>",
	Short: "Register a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered projects",
	RunE:    runProjectList,
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Unregister a project",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectRemove,
}

func init() {
	projectAddCmd.Flags().StringVar(&projectBranch, "branch", "", "default base branch for worktree spawns")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRemoveCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
		return fmt.Errorf("%s is not a git repository", path)
	}

	idx, err := config.LoadProjects()
	if err != nil {
		return err
	}
	idx.AddProject(models.ProjectEntry{
		ProjectID:     args[0],
		Path:          path,
		DefaultBranch: projectBranch,
	})
	if err := config.SaveProjects(idx); err != nil {
		return err
	}

	fmt.Printf("%s %s -> %s\n", styleSuccess.Render("Registered"), args[0], path)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	idx, err := config.LoadProjects()
	if err != nil {
		return err
	}
	if len(idx.Projects) == 0 {
		fmt.Println("No projects registered.")
		return nil
	}

	for _, p := range idx.Projects {
		line := fmt.Sprintf("  %-20s %s", styleValue.Render(p.ProjectID), p.Path)
		if p.DefaultBranch != "" {
			line += styleHint.Render("  (base: " + p.DefaultBranch + ")")
		}
		fmt.Println(line)
	}
	return nil
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	idx, err := config.LoadProjects()
	if err != nil {
		return err
	}
	if !idx.RemoveProject(args[0]) {
		return fmt.Errorf("project %s not found", args[0])
	}
	if err := config.SaveProjects(idx); err != nil {
		return err
	}

	fmt.Printf("%s %s\n", styleSuccess.Render("Removed"), args[0])
	return nil
}
