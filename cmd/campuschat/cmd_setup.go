package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/campuschat/internal/config"
	"github.com/user/campuschat/internal/types"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println(bannerStyle.Render("Campus Chat Setup"))
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Portal.BaseURL = prompt(scanner, "Portal base URL", cfg.Portal.BaseURL)
		cfg.Portal.Token = prompt(scanner, "Portal access token (optional, empty for guest)", cfg.Portal.Token)

		if cfg.Portal.Token != "" {
			cfg.User.ID = prompt(scanner, "User ID", cfg.User.ID)
			cfg.User.Name = prompt(scanner, "Display name", cfg.User.Name)
			role := prompt(scanner, "Role (Student, Teacher, Admin)", cfg.User.Role)
			cfg.User.Role = string(types.ParseRole(role))
			if cfg.User.Role == string(types.RoleStudent) {
				cfg.User.Branch = prompt(scanner, "Branch", cfg.User.Branch)
				cfg.User.Semester = prompt(scanner, "Semester", cfg.User.Semester)
				cfg.User.Section = prompt(scanner, "Section", cfg.User.Section)
			}
		}

		cfg.Storage.Backend = prompt(scanner, "History storage (file, sqlite, memory)", cfg.Storage.Backend)
		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
