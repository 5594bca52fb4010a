package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/spf13/cobra"
)

var (
	projectDescription string
	projectListAll     bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add TITLE",
	Short: "Create a project",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive ID",
	Short: "Archive a project so no new time can be booked on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProjectActive(cmd.Context(), args[0], false)
	},
}

var projectActivateCmd = &cobra.Command{
	Use:   "activate ID",
	Short: "Reactivate an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProjectActive(cmd.Context(), args[0], true)
	},
}

func init() {
	projectAddCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectListCmd.Flags().BoolVarP(&projectListAll, "all", "a", false, "Include archived projects")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectActivateCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	project := &storage.Project{
		Title:       strings.Join(args, " "),
		Description: projectDescription,
		Active:      true,
	}
	if err := project.Validate(); err != nil {
		return err
	}
	if err := a.projects.Create(cmd.Context(), project); err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	fmt.Printf("Created project #%d %s\n", project.ID, project.Title)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.projects.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	faint := color.New(color.Faint)
	shown := 0
	for _, p := range projects {
		if !p.Active && !projectListAll {
			continue
		}
		shown++
		line := fmt.Sprintf("%5d  %s", p.ID, p.Title)
		if p.Description != "" {
			line += "  - " + p.Description
		}
		if !p.Active {
			_, _ = faint.Println(line + "  (archived)")
			continue
		}
		fmt.Println(line)
	}

	if shown == 0 {
		fmt.Println("No projects. Create one with: baralga project add TITLE")
	}
	return nil
}

func setProjectActive(ctx context.Context, arg string, active bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	project, err := a.projects.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("project #%d: %w", id, err)
	}
	project.Active = active
	if err := a.projects.Upsert(ctx, *project); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	state := "archived"
	if active {
		state = "active"
	}
	fmt.Printf("Project #%d %s is now %s\n", project.ID, project.Title, state)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid project id: %s", s)
	}
	return id, nil
}
