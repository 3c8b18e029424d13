package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/riffcord/internal/config"
	"github.com/tessro/riffcord/internal/wizard"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage configuration",
	Long:        `Commands for viewing and editing riffcord configuration.`,
	Annotations: localOnly,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration values, including defaults and environment overrides.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	RunE:  runConfigEdit,
}

var configInitDefaults bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a new configuration file. In a terminal a short form asks for
the bot backend URL and your Discord application's client ID.`,
	RunE: runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Supported keys:
  backend.base_url          Bot backend URL
  backend.servers_url       Server listing URL (defaults to base_url)
  discord.client_id         Discord application client ID
  device.volume             Initial on-device volume (0-100)
  notify.desktop            Desktop notifications (true/false)
  sync.debounce_ms          Snapshot debounce window
  guild.poll_interval_ms    Bot voice status poll interval
  log.level                 debug, info, warn or error
  log.file                  Log to a file instead of stderr

Examples:
  riffcord config set backend.base_url https://bot.example.com
  riffcord config set device.volume 70`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var (
	intKeys = []string{
		"backend.timeout", "device.volume", "tui.refresh_interval",
		"sync.debounce_ms", "sync.pending_timeout_ms", "sync.reconnect_base_ms",
		"sync.reconnect_max_ms", "sync.reconnect_max_attempts",
		"guild.poll_interval_ms", "guild.servers_throttle_ms",
	}
	floatKeys = []string{"sync.reconnect_factor"}
	boolKeys  = []string{"notify.desktop", "tail.emoji", "tail.timestamp"}
)

func init() {
	configInitCmd.Flags().BoolVar(&configInitDefaults, "defaults", false, "Write defaults without prompting")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(cfg)
	}

	// Pretty print as TOML
	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'riffcord config init' first", configPath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi", "notepad"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	newCfg := config.Default()
	if !configInitDefaults && !JSONOutput() && wizard.IsTerminal() {
		if err := promptConfig(newCfg); err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
	}
	if newCfg.Backend.BaseURL != "" {
		if err := newCfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if err := writeConfig(configPath, newCfg); err != nil {
		return err
	}

	if JSONOutput() {
		printJSON(map[string]string{
			"status": "created",
			"path":   configPath,
		})
	} else {
		fmt.Printf("Created config file: %s\n", configPath)
		fmt.Println("\nNext steps:")
		if newCfg.Backend.BaseURL == "" {
			fmt.Println("  - Set backend.base_url in the config file or via RIFFCORD_BACKEND_URL")
		}
		fmt.Println("  - Run 'riffcord auth login' to sign in with Discord")
		fmt.Println("  - Run 'riffcord servers use' to pick a server")
	}

	return nil
}

// promptConfig asks for the settings that have no usable default.
func promptConfig(c *config.Config) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot backend URL").
				Description("The http(s) address of the music bot's API").
				Placeholder("https://bot.example.com").
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					probe := config.Default()
					probe.Backend.BaseURL = s
					return probe.Backend.Validate()
				}).
				Value(&c.Backend.BaseURL),
			huh.NewInput().
				Title("Discord client ID").
				Description("From your Discord application's OAuth2 page").
				Value(&c.Discord.ClientID),
			huh.NewConfirm().
				Title("Desktop notifications?").
				Description("Show playback errors as system notifications").
				Value(&c.Notify.Desktop),
		),
	)
	return form.Run()
}

func writeConfig(path string, c any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	_, _ = fmt.Fprintln(f, "# Riffcord Configuration")
	_, _ = fmt.Fprintln(f, "")

	encoder := toml.NewEncoder(f)
	encoder.Indent = "  "
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// getConfigPath returns the file commands read and write: the --config flag,
// an existing ~/.riffcordrc, or the XDG location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}

	if home, err := os.UserHomeDir(); err == nil {
		rc := filepath.Join(home, ".riffcordrc")
		if _, err := os.Stat(rc); err == nil {
			return rc
		}
	}

	if p := config.DefaultPath(); p != "" {
		return p
	}
	return ".riffcordrc"
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'riffcord config init' first", configPath)
	}

	// Read the current config file as raw TOML
	var rawConfig map[string]any
	if _, err := toml.DecodeFile(configPath, &rawConfig); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if rawConfig == nil {
		rawConfig = make(map[string]any)
	}

	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return fmt.Errorf("invalid key format. Use 'section.key' (e.g., device.volume)")
	}
	section, field := parts[0], parts[1]

	sectionMap, ok := rawConfig[section].(map[string]any)
	if !ok {
		sectionMap = make(map[string]any)
		rawConfig[section] = sectionMap
	}

	var typedValue any
	switch {
	case slices.Contains(intKeys, key):
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("value must be an integer for %s", key)
		}
		typedValue = n
	case slices.Contains(floatKeys, key):
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("value must be a number for %s", key)
		}
		typedValue = f
	case slices.Contains(boolKeys, key):
		typedValue = value == "true" || value == "1" || value == "yes"
	default:
		typedValue = value
	}
	sectionMap[field] = typedValue

	// Validate the result before writing it back
	var check config.Config
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(rawConfig); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if _, err := toml.Decode(buf.String(), &check); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	check.ApplyDefaults()
	if check.Backend.BaseURL == "" {
		// An unset backend is reported by the commands that need it.
		check.Backend.BaseURL = "http://localhost"
	}
	if err := check.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := writeConfig(configPath, rawConfig); err != nil {
		return err
	}

	if JSONOutput() {
		printJSON(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	} else {
		fmt.Printf("Set %s = %s\n", key, value)
	}

	return nil
}
