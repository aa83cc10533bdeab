package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/pkg/assistant"
)

var askNoStream bool

func init() {
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "request a single JSON response instead of a stream")
	rootCmd.AddCommand(askCmd)
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		if askNoStream {
			cfg.Chat.Stream = false
		}
		out := cmd.OutOrStdout()

		printer := &deltaPrinter{w: out}
		a, err := newApp(cfg, gateway.Options{
			OnDelta: func(_ *gateway.Run, content string) { printer.print(content) },
		})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		msg, err := a.gateway.Submit(ctx, a.user, strings.Join(args, " "))
		if err != nil {
			if printer.printed() > 0 {
				fmt.Fprintln(out)
			}
			if errors.Is(err, context.Canceled) {
				return errors.New(assistant.CancelledMessage)
			}
			if msg != nil {
				return errors.New(msg.Content)
			}
			return err
		}
		if printer.printed() == 0 {
			fmt.Fprint(out, msg.Content)
		}
		fmt.Fprintln(out)
		printSources(out, *msg)
		return nil
	},
}
