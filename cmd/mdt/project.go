package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/service"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Register, inspect, and update projects",
}

var createFlags struct {
	name          string
	code          string
	path          string
	ticketsPath   string
	description   string
	repositoryURL string
	globalOnly    bool
	documentPaths []string
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new project",
	Long: `Register a new project for ticket management.

The storage strategy is decided from the path: projects under a
configured search path use auto-discovery, --global-only forces the
registry-only layout, and everything else writes a .mdt-config.toml in
the project directory plus a pointer in the global registry.

Examples:
  # Register the current directory
  mdt project create --name "My Project" --code MDT

  # Register without touching the project directory
  mdt project create --name Infra --code INF --path ~/src/infra --global-only`,
	RunE: runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered and discovered projects",
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <id|code|path>",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var updateFlags struct {
	name          string
	code          string
	ticketsPath   string
	description   string
	repositoryURL string
	documentPaths []string
}

var projectUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update project fields",
	Long:  `Update project fields. Only flags that are set are changed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectUpdate,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a project's registration and configuration files",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

var projectEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Mark a project active",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectSetActive(true),
}

var projectDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Mark a project inactive",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectSetActive(false),
}

func init() {
	f := projectCreateCmd.Flags()
	f.StringVar(&createFlags.name, "name", "", "human-readable project name (required)")
	f.StringVar(&createFlags.code, "code", "", "ticket prefix, 2-5 letters (required)")
	f.StringVar(&createFlags.path, "path", ".", "project directory")
	f.StringVar(&createFlags.ticketsPath, "tickets-path", "", "tickets directory relative to the project (default "+project.DefaultTicketsPath+")")
	f.StringVar(&createFlags.description, "description", "", "project description")
	f.StringVar(&createFlags.repositoryURL, "repository-url", "", "repository URL (default: git origin remote)")
	f.BoolVar(&createFlags.globalOnly, "global-only", false, "store all configuration in the global registry")
	f.StringArrayVar(&createFlags.documentPaths, "document-path", nil, "document directory, repeatable")

	u := projectUpdateCmd.Flags()
	u.StringVar(&updateFlags.name, "name", "", "new project name")
	u.StringVar(&updateFlags.code, "code", "", "new ticket prefix")
	u.StringVar(&updateFlags.ticketsPath, "tickets-path", "", "new tickets directory")
	u.StringVar(&updateFlags.description, "description", "", "new description")
	u.StringVar(&updateFlags.repositoryURL, "repository-url", "", "new repository URL")
	u.StringArrayVar(&updateFlags.documentPaths, "document-path", nil, "replace document directories, repeatable")

	projectCmd.AddCommand(
		projectCreateCmd,
		projectListCmd,
		projectShowCmd,
		projectUpdateCmd,
		projectDeleteCmd,
		projectEnableCmd,
		projectDisableCmd,
	)
	rootCmd.AddCommand(projectCmd)
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	rec, err := a.projects.Create(cmd.Context(), service.CreateSpec{
		Name:          createFlags.name,
		Code:          createFlags.code,
		Path:          createFlags.path,
		TicketsPath:   createFlags.ticketsPath,
		Description:   createFlags.description,
		RepositoryURL: createFlags.repositoryURL,
		GlobalOnly:    createFlags.globalOnly,
		Document:      project.DocumentSettings{Paths: createFlags.documentPaths},
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(rec)
	}
	fmt.Printf("Registered %s (%s) at %s [%s]\n", rec.ID, rec.Code, rec.Path, rec.Strategy)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	recs, err := a.projects.List(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(recs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCODE\tACTIVE\tSTRATEGY\tPATH")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", rec.ID, rec.Code, rec.Active, rec.Strategy, rec.Path)
	}
	return w.Flush()
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	rec, err := a.projects.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(rec)
	}
	printRecord(rec)
	return nil
}

func runProjectUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var patch service.Patch
	flags := cmd.Flags()
	if flags.Changed("name") {
		patch.Name = &updateFlags.name
	}
	if flags.Changed("code") {
		patch.Code = &updateFlags.code
	}
	if flags.Changed("tickets-path") {
		patch.TicketsPath = &updateFlags.ticketsPath
	}
	if flags.Changed("description") {
		patch.Description = &updateFlags.description
	}
	if flags.Changed("repository-url") {
		patch.RepositoryURL = &updateFlags.repositoryURL
	}
	if flags.Changed("document-path") {
		patch.Document = &project.DocumentSettings{Paths: updateFlags.documentPaths}
	}

	rec, err := a.projects.Update(cmd.Context(), args[0], patch)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(rec)
	}
	fmt.Printf("Updated %s\n", rec.ID)
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if err := a.projects.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]string{"deleted": args[0]})
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runProjectSetActive(active bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		rec, err := a.projects.SetActive(cmd.Context(), args[0], active)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(rec)
		}
		state := "disabled"
		if rec.Active {
			state = "enabled"
		}
		fmt.Printf("Project %s %s\n", rec.ID, state)
		return nil
	}
}

func printRecord(rec *project.Record) {
	fmt.Printf("ID:             %s\n", rec.ID)
	fmt.Printf("Name:           %s\n", rec.Name)
	fmt.Printf("Code:           %s\n", rec.Code)
	fmt.Printf("Path:           %s\n", rec.Path)
	fmt.Printf("Tickets path:   %s\n", rec.TicketsPath)
	fmt.Printf("Strategy:       %s\n", rec.Strategy)
	fmt.Printf("Active:         %t\n", rec.Active)
	if rec.Description != "" {
		fmt.Printf("Description:    %s\n", rec.Description)
	}
	if rec.RepositoryURL != "" {
		fmt.Printf("Repository:     %s\n", rec.RepositoryURL)
	}
	if !rec.DateRegistered.IsZero() {
		fmt.Printf("Registered:     %s\n", rec.DateRegistered.Format("2006-01-02 15:04:05 MST"))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
