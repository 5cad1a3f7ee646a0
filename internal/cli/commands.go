package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmallory/taskdeck/internal/auth"
	"github.com/rmallory/taskdeck/internal/config"
	"github.com/rmallory/taskdeck/internal/entity"
	"github.com/rmallory/taskdeck/internal/store"
)

func newReadyCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List tasks eligible for work, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := st.ReadyTasks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Printf("%s\tp%d\t%s\n", t.ID, entity.EffectivePriority(t.Priority), t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "limit to one project")
	return cmd
}

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	var projectID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := st.ListTasks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				fmt.Printf("%s\t%s\t%s\n", t.ID, t.Status, t.Title)
			}
			return nil
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "limit to one project")

	var addProject, addEpic string
	var addDeps []string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			t, err := st.CreateTask(cmd.Context(), store.TaskParams{
				ProjectID: addProject,
				EpicID:    addEpic,
				Title:     args[0],
				DependsOn: addDeps,
			})
			if err != nil {
				return err
			}
			fmt.Println(t.ID)
			return nil
		},
	}
	add.Flags().StringVar(&addProject, "project", "", "project id (required)")
	add.Flags().StringVar(&addEpic, "epic", "", "epic id")
	add.Flags().StringSliceVar(&addDeps, "depends-on", nil, "task ids this task depends on")
	_ = add.MarkFlagRequired("project")

	cmd.AddCommand(list, add)
	return cmd
}

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			projects, err := st.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range projects {
				fmt.Printf("%s\t%s\t%s\n", p.ID, p.Visibility, p.Name)
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := st.CreateProject(cmd.Context(), args[0], "", entity.VisibilityPrivate)
			if err != nil {
				return err
			}
			fmt.Println(p.ID)
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}

func newPairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Device-pairing credential flow",
	}

	var name string
	begin := &cobra.Command{
		Use:   "begin",
		Short: "Start a pairing request and print its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openAuth(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			req, err := svc.BeginPairing(cmd.Context(), name, nil)
			if err != nil {
				return err
			}
			fmt.Printf("token: %s\nexpires: %s\n", req.Token, req.ExpiresAt.Format("15:04:05"))
			return nil
		},
	}
	begin.Flags().StringVar(&name, "name", "cli", "name for the issued key")

	poll := &cobra.Command{
		Use:   "poll <token>",
		Short: "Poll a pairing request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openAuth(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			status, secret, err := svc.PollPairing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if secret != "" {
				fmt.Printf("%s\t%s\n", status, secret)
			} else {
				fmt.Println(status)
			}
			return nil
		},
	}

	cmd.AddCommand(begin, poll)
	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteFile(config.Default(), out); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	initCmd.Flags().StringVar(&out, "out", "taskdeck.yaml", "where to write the config file")

	cmd.AddCommand(initCmd)
	return cmd
}

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Prune expired pairing requests and aged delivery logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			svc, err := auth.NewService(st, auth.DefaultPrimitives())
			if err != nil {
				return err
			}
			pairings, err := svc.CleanupPairings(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			deliveries, err := st.PruneDeliveries(cmd.Context(), cfg.Webhooks.DeliveryRetention)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d pairing requests, %d delivery records\n", pairings, deliveries)
			return nil
		},
	}
}
