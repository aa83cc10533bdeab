package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/campuschat/internal/session"
	"github.com/user/campuschat/internal/state"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	historyExportCmd.Flags().StringVarP(&exportFormat, "format", "f", session.FormatJSON, "export format: json, yaml or markdown")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyClearCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the saved conversation",
}

// withHistory opens the configured store and passes it with the
// configured user's history key.
func withHistory(fn func(ctx context.Context, store types.HistoryStore, key string) error) error {
	cfg := loadConfig()
	setupLogging(cfg)

	store, closeStore, err := state.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer closeStore()

	key := types.IdentityOf(cfg.CurrentUser()).HistoryKey()
	return fn(context.Background(), store, key)
}

func loadHistory(ctx context.Context, store types.HistoryStore, key string) ([]assistant.Message, error) {
	msgs, _, err := store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return msgs, nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every saved conversation in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store types.HistoryStore, key string) error {
			lister, ok := store.(types.KeyLister)
			if !ok {
				return fmt.Errorf("history store cannot list conversations")
			}
			keys, err := lister.Keys(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No saved conversations.")
				return nil
			}
			for _, k := range keys {
				marker := " "
				if k == key {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, k)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store types.HistoryStore, key string) error {
			msgs, err := loadHistory(ctx, store, key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(msgs) == 0 {
				fmt.Fprintln(out, "No saved conversation.")
				return nil
			}
			for _, m := range msgs {
				printMessage(out, m)
			}
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store types.HistoryStore, key string) error {
			if err := store.Clear(ctx, key); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the saved conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store types.HistoryStore, key string) error {
			msgs, err := loadHistory(ctx, store, key)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if exportOutput != "" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return session.Export(w, msgs, exportFormat)
		})
	},
}
