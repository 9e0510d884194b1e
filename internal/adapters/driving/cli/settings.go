package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docmodel/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure document, save and recovery settings.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsRecoveryCmd = &cobra.Command{
	Use:   "recovery <backend>",
	Short: "Set the recovery backend",
	Long: `Set where unsaved edits are recorded for crash recovery.

Available backends:
  none    - Disabled
  memory  - In-memory (lost on exit)
  sqlite  - Local SQLite database (default)
  redis   - Shared Redis instance (requires --redis-addr)`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsRecovery,
}

var settingsGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Configure GitHub access",
	Long: `Configure the personal access token and branch used for github:// resources.

The token is read from the terminal without echo.`,
	RunE: runSettingsGitHub,
}

func init() {
	settingsRecoveryCmd.Flags().String("redis-addr", "", "Redis address (host:port)")
	settingsRecoveryCmd.Flags().String("data-dir", "", "SQLite data directory")
	settingsRecoveryCmd.Flags().String("key-prefix", "", "record key prefix")
	settingsGitHubCmd.Flags().String("branch", "", "branch to read and commit to")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsRecoveryCmd)
	settingsCmd.AddCommand(settingsGitHubCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println("[Documents]")
	cmd.Printf("  Eviction grace: %s\n", settings.Documents.EvictionGrace)
	cmd.Printf("  Default encoding: %s\n", settings.Documents.DefaultEncoding)
	cmd.Println()

	cmd.Println("[Files]")
	cmd.Printf("  Trim final newlines: %s\n", yesNo(settings.Files.TrimFinalNewlines))
	cmd.Printf("  Insert final newline: %s\n", yesNo(settings.Files.InsertFinalNewline))
	cmd.Println()

	cmd.Println("[Recovery]")
	cmd.Printf("  Backend: %s\n", settings.Recovery.Backend.Description())
	switch settings.Recovery.Backend {
	case domain.RecoveryBackendSQLite:
		cmd.Printf("  Data dir: %s\n", orDefault(settings.Recovery.DataDir, "~/.docmodel/data"))
	case domain.RecoveryBackendRedis:
		cmd.Printf("  Redis: %s\n", orDefault(settings.Recovery.RedisAddr, "(not set)"))
	}
	cmd.Printf("  Key prefix: %s\n", settings.Recovery.KeyPrefix)
	cmd.Println()

	cmd.Println("[GitHub]")
	if settings.GitHub.Token != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(settings.GitHub.Token))
	} else {
		cmd.Printf("  Token: (not set, anonymous read-only access)\n")
	}
	cmd.Printf("  Branch: %s\n", orDefault(settings.GitHub.Branch, "(default branch)"))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(errorStyle.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'docmodel settings wizard' to fix configuration issues.")
	} else {
		cmd.Println(successStyle.Render("Configuration is valid."))
	}

	return nil
}

func runSettingsRecovery(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.RecoveryBackend(strings.ToLower(args[0]))
	if !backend.IsValid() {
		return fmt.Errorf("unknown recovery backend %q", args[0])
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Recovery.Backend = backend
	if v, _ := cmd.Flags().GetString("redis-addr"); v != "" {
		settings.Recovery.RedisAddr = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		settings.Recovery.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("key-prefix"); v != "" {
		settings.Recovery.KeyPrefix = v
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}

	cmd.Printf("Recovery backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsGitHub(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Print("Enter personal access token (leave empty to keep current): ")
	token := readPassword(cmd.InOrStdin())
	cmd.Println()
	if token != "" {
		settings.GitHub.Token = token
	}
	if branch, _ := cmd.Flags().GetString("branch"); branch != "" {
		settings.GitHub.Branch = branch
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Println("GitHub settings saved.")
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Docmodel Settings Wizard"))
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Recovery backend
	cmd.Println("Step 1: Select Recovery Backend")
	cmd.Println("-------------------------------")
	backends := []domain.RecoveryBackend{
		domain.RecoveryBackendSQLite,
		domain.RecoveryBackendRedis,
		domain.RecoveryBackendMemory,
		domain.RecoveryBackendNone,
	}
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(backends), 1)
	settings.Recovery.Backend = backends[idx-1]

	if settings.Recovery.Backend == domain.RecoveryBackendRedis {
		cmd.Printf("Redis address [%s]: ", orDefault(settings.Recovery.RedisAddr, "localhost:6379"))
		addr := readLine(reader)
		switch {
		case addr != "":
			settings.Recovery.RedisAddr = addr
		case settings.Recovery.RedisAddr == "":
			settings.Recovery.RedisAddr = "localhost:6379"
		}
	}
	cmd.Println()

	// Step 2: Save behaviour
	cmd.Println("Step 2: Save Behaviour")
	cmd.Println("----------------------")
	cmd.Printf("Trim final newlines? [%s]: ", yesNo(settings.Files.TrimFinalNewlines))
	settings.Files.TrimFinalNewlines = parseYesNo(readLine(reader), settings.Files.TrimFinalNewlines)
	cmd.Printf("Insert final newline? [%s]: ", yesNo(settings.Files.InsertFinalNewline))
	settings.Files.InsertFinalNewline = parseYesNo(readLine(reader), settings.Files.InsertFinalNewline)
	cmd.Printf("Eviction grace in milliseconds [%d]: ", settings.Documents.EvictionGrace.Milliseconds())
	if ms, err := strconv.Atoi(readLine(reader)); err == nil && ms > 0 {
		settings.Documents.EvictionGrace = time.Duration(ms) * time.Millisecond
	}
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := settingsService.Validate(); err != nil {
		return err
	}

	cmd.Println("Settings saved. Run 'docmodel settings github' to configure GitHub access.")
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func parseYesNo(input string, defaultVal bool) bool {
	switch strings.ToLower(input) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	// Read without echo when attached to a terminal
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
