package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bobmatnyc/ai-commander-sub001/internal/config"
	"github.com/bobmatnyc/ai-commander-sub001/internal/model"
	"github.com/bobmatnyc/ai-commander-sub001/internal/store"
)

// projectCmd groups the commands that manage tracked projects' persisted
// records (C7). Starting, stopping, and sending input to a project's live
// tmux session is driven by the `serve` process, which owns the executor
// (C6) instance table; these commands only touch the on-disk (or,
// optionally, Postgres) state.
func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage tracked projects",
	}
	cmd.AddCommand(projectAddCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectRemoveCmd())
	return cmd
}

// projectBackend is the subset of project persistence every `project`
// subcommand needs, satisfied by either the default file-backed
// StateStore or, when database.dsn is configured, PostgresProjectStore.
type projectBackend interface {
	SaveProject(ctx context.Context, p *model.Project) error
	ListAllProjects(ctx context.Context, onSkip func(id string, err error)) ([]*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// fileBackend adapts StateStore's synchronous, context-free methods to
// projectBackend.
type fileBackend struct{ s *store.StateStore }

func (f fileBackend) SaveProject(_ context.Context, p *model.Project) error { return f.s.SaveProject(p) }
func (f fileBackend) ListAllProjects(_ context.Context, onSkip func(id string, err error)) ([]*model.Project, error) {
	return f.s.ListAllProjects(onSkip)
}
func (f fileBackend) DeleteProject(_ context.Context, id string) error { return f.s.DeleteProject(id) }

func openProjectBackend(ctx context.Context) (projectBackend, func(), error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.DSN != "" {
		pg, err := store.NewPostgresProjectStore(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pg, pg.Close, nil
	}
	s := store.NewStateStore(filepath.Join(cfg.StatePath(), "projects"))
	return fileBackend{s}, func() {}, nil
}

func projectAddCmd() *cobra.Command {
	var adapterID string
	cmd := &cobra.Command{
		Use:   "add <name> <path>",
		Short: "Track a new project at a filesystem path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openProjectBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			p := model.NewProject(args[0], args[1])
			if adapterID != "" {
				p.SessionBindings = map[string]string{adapterID: ""}
			}
			if err := backend.SaveProject(cmd.Context(), p); err != nil {
				return fmt.Errorf("save project: %w", err)
			}
			fmt.Printf("added project %s (%s) at %s\n", p.Name, p.ID, p.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&adapterID, "adapter", "claude-code", "adapter to bind (claude-code, mpm, shell)")
	return cmd
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openProjectBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			projects, err := backend.ListAllProjects(cmd.Context(), func(id string, err error) {
				fmt.Printf("  (skipping %s: %s)\n", id, err)
			})
			if err != nil {
				return fmt.Errorf("list projects: %w", err)
			}
			if len(projects) == 0 {
				fmt.Println("no tracked projects")
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%-12s %-20s %-8s %s\n", p.ID, p.Name, p.State, p.Path)
			}
			return nil
		},
	}
}

func projectRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a project (does not kill its tmux session)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, closeFn, err := openProjectBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := backend.DeleteProject(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete project: %w", err)
			}
			fmt.Printf("removed project %s\n", args[0])
			return nil
		},
	}
}
