// Package cli wires the taskdeck commands. The command surface here is a
// thin host: it selects a storage adapter from configuration at startup,
// builds one entity store over it, and maps subcommands onto store calls.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmallory/taskdeck/internal/auth"
	"github.com/rmallory/taskdeck/internal/config"
	"github.com/rmallory/taskdeck/internal/hook"
	"github.com/rmallory/taskdeck/internal/storage"
	"github.com/rmallory/taskdeck/internal/store"
)

var (
	cfgFile    string
	backendStr string
	target     string
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Shared backend for hierarchical work tracking",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().StringVar(&backendStr, "backend", "", "storage backend (file|sqlite|remote)")
	root.PersistentFlags().StringVar(&target, "target", "", "snapshot path or connection string")

	root.AddCommand(
		newReadyCmd(),
		newTaskCmd(),
		newProjectCmd(),
		newPairCmd(),
		newConfigCmd(),
		newCleanupCmd(),
	)
	return root
}

// openStore builds the configured adapter and a store over it.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}

	// Flag overrides, with path sniffing as a convenience when only a
	// target is given.
	if target != "" {
		if backendStr == "" {
			cfg.Storage.Backend = config.DetectBackend(target)
		}
		switch cfg.Storage.Backend {
		case config.BackendRemote:
			cfg.Storage.DSN = target
		default:
			cfg.Storage.Path = target
		}
	}
	if backendStr != "" {
		backend, err := config.ParseBackend(backendStr)
		if err != nil {
			return nil, nil, err
		}
		cfg.Storage.Backend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	adapter, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := hook.New(hook.HTTPHandler(cfg.Webhooks.Timeout))
	st := store.New(adapter,
		store.WithNotifier(dispatcher),
		store.WithLogger(slog.Default()),
	)

	// Realtime refreshes route through Store.Reload so the re-read
	// serializes with store operations on the shared snapshot.
	if cfg.Storage.Backend == config.BackendRemote && cfg.Storage.Realtime {
		if ra, ok := adapter.(*storage.RemoteAdapter); ok {
			if err := ra.Subscribe(ctx, cfg.Storage.RealtimeURL, st.Reload); err != nil {
				_ = adapter.Close()
				return nil, nil, err
			}
		}
	}

	cleanup := func() {
		if err := adapter.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close adapter: %v\n", err)
		}
	}
	return st, cleanup, nil
}

func openAuth(ctx context.Context) (*auth.Service, func(), error) {
	st, cleanup, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := auth.NewService(st, auth.DefaultPrimitives())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
