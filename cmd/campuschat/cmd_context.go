package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	ctxengine "github.com/user/campuschat/internal/context"
	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/types"
)

var contextRole string

func init() {
	contextShowCmd.Flags().StringVar(&contextRole, "role", "", "preview the static context of another role (Guest, Student, Teacher, Admin)")
	contextCmd.AddCommand(contextShowCmd)
	rootCmd.AddCommand(contextCmd)
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect the context sent with chat requests",
}

var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the context payload for the configured user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		a, err := newApp(cfg, gateway.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var payload ctxengine.Payload
		if contextRole != "" {
			user := &types.User{ID: "preview", Name: "Preview", Role: types.ParseRole(contextRole)}
			payload = a.contexts.Assembler.Assemble(user, nil)
		} else {
			payload = a.contexts.Payload(context.Background(), a.user)
		}

		data, err := json.MarshalIndent(payload.Wire(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal context: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
