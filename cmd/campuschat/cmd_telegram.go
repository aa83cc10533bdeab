package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/campuschat/internal/gateway"
	"github.com/user/campuschat/internal/telegram"
	"github.com/user/campuschat/internal/types"
)

const pidFile = "campuschat.pid"

func init() {
	telegramCmd.AddCommand(telegramStopCmd, telegramRestartCmd)
	rootCmd.AddCommand(telegramCmd)
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot front end",
	Args:  cobra.NoArgs,
	RunE:  runTelegram,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFile)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runTelegram(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is not set (config set telegram.token <token> or TELEGRAM_BOT_TOKEN)")
	}

	a, err := newApp(cfg, gateway.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	role := types.ParseRole(cfg.Telegram.Role)
	adapter, err := telegram.New(cfg.Telegram.Token, a.gateway, role)
	if err != nil {
		return fmt.Errorf("create telegram adapter: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go adapter.Start(ctx)

	slog.Info("campuschat telegram bot started",
		"data_dir", cfg.DataDir,
		"base_url", cfg.Portal.BaseURL,
		"role", string(role),
		"max_concurrent", cfg.Chat.MaxConcurrent,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			cancel()
			a.Close()
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				return err
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}

var telegramStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalBot(cmd, syscall.SIGTERM, "stop")
	},
}

var telegramRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return signalBot(cmd, syscall.SIGHUP, "restart")
	},
}

// signalBot sends sig to the bot recorded in the PID file.
func signalBot(cmd *cobra.Command, sig syscall.Signal, action string) error {
	cfg := loadConfig()
	pid, err := readPID(filepath.Join(cfg.DataDir, pidFile))
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(sig); err != nil {
		return fmt.Errorf("%s bot: %w", action, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to bot (PID %d).\n", sig, pid)
	return nil
}

// readPID returns the PID recorded at pidPath after checking with signal 0
// that the process is alive.
func readPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("no running bot (PID file not found)")
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, fmt.Errorf("no running bot (process %d not found)", pid)
	}
	return pid, nil
}
