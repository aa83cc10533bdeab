package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/voice"
	"github.com/user/campuschat/pkg/assistant"
)

func init() {
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

const chatHelp = `Commands:
  /clear   start a new conversation
  /help    show this help
  /quit    leave the chat
Press Ctrl-C to cancel a reply in progress.`

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)
	out := cmd.OutOrStdout()

	printer := &deltaPrinter{w: out}
	a, err := newApp(cfg, gateway.Options{
		OnDelta: func(_ *gateway.Run, content string) { printer.print(content) },
	})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	coord, err := a.gateway.Resolve(ctx, a.user)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	sess := coord.Session()

	rec, synth := voice.Detect(voice.Config{
		Enabled:          cfg.Voice.Enabled,
		SpeakCommand:     cfg.Voice.Command,
		RecognizeCommand: cfg.Voice.RecognizeCommand,
	})

	lines := make(chan string)
	go readLines(ctx, cmd.InOrStdin(), lines)
	heard := make(chan string)

	if synth.Available() {
		if err := synth.Start(ctx); err != nil {
			slog.Warn("speech synthesis unavailable", "error", err)
		}
		defer synth.Stop()
	}
	if rec.Available() {
		rec.On(voice.EventResult, func(text string) {
			select {
			case heard <- text:
			case <-ctx.Done():
			}
		})
		rec.On(voice.EventError, func(msg string) { slog.Warn("speech recognition error", "error", msg) })
		if err := rec.Start(ctx); err != nil {
			slog.Warn("speech recognition unavailable", "error", err)
		}
		defer rec.Stop()
	}

	// Ctrl-C cancels the reply in progress, or leaves when idle.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case sig := <-sigs:
				if sig == syscall.SIGINT && coord.State() != gateway.StateIdle {
					coord.Cancel()
					continue
				}
				cancel()
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	for _, m := range sess.Messages() {
		printMessage(out, m)
	}

	for {
		if sess.BannerVisible() {
			fmt.Fprintln(out, dimStyle.Render("Type /help for commands."))
		}
		fmt.Fprint(out, userLabel.Render("you")+" ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		case l := <-heard:
			line = strings.TrimSpace(l)
			fmt.Fprintln(out, line)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, dimStyle.Render(chatHelp))
			continue
		case "/clear":
			if err := sess.Clear(ctx); err != nil {
				fmt.Fprintln(out, errorStyle.Render("Failed to clear history: "+err.Error()))
				continue
			}
			for _, m := range sess.Messages() {
				printMessage(out, m)
			}
			continue
		}

		msg := submit(ctx, out, coord, printer, line)
		if msg != nil && !isFailure(*msg) && synth.Available() {
			if err := synth.Speak(msg.Content); err != nil {
				slog.Debug("speak failed", "error", err)
			}
		}
	}
}

// submit sends one line and renders the reply. Streamed content is
// printed as it arrives.
func submit(ctx context.Context, out io.Writer, coord *gateway.Coordinator, printer *deltaPrinter, text string) *assistant.Message {
	printer.reset()
	fmt.Fprint(out, modelLabel.Render("assistant")+" ")

	msg, err := coord.Submit(ctx, text)
	switch {
	case errors.Is(err, gateway.ErrBusy):
		fmt.Fprintln(out, dimStyle.Render("Still answering the previous message."))
		return nil
	case errors.Is(err, gateway.ErrClosed):
		fmt.Fprintln(out, dimStyle.Render("Session closed."))
		return nil
	case msg == nil:
		fmt.Fprintln(out, errorStyle.Render(assistant.UserMessage(err)))
		return nil
	}

	switch {
	case isCancelled(*msg):
		fmt.Fprint(out, dimStyle.Render(" [cancelled]"))
	case isFailure(*msg):
		if printer.printed() > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprint(out, errorStyle.Render(msg.Content))
	case printer.printed() == 0:
		fmt.Fprint(out, msg.Content)
	}
	fmt.Fprintln(out)
	printSources(out, *msg)
	return msg
}

func readLines(ctx context.Context, r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// deltaPrinter prints the new suffix of each accumulated content update.
type deltaPrinter struct {
	w io.Writer
	n int
}

func (p *deltaPrinter) reset() { p.n = 0 }

func (p *deltaPrinter) printed() int { return p.n }

func (p *deltaPrinter) print(content string) {
	if len(content) < p.n {
		p.n = 0
	}
	fmt.Fprint(p.w, content[p.n:])
	p.n = len(content)
}
