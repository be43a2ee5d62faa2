package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pulse"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage pulse configuration.

Running bare 'pulse config' is the same as 'pulse config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# pulse configuration
# See: pulse config show (for effective values and sources)

# State/data directory (default: ~/.config/pulse)
# state_dir: {{ .StateDir }}

# SQLite database path (default: ~/.config/pulse/pulse.db)
# db_path: {{ .DBPath }}

# Logging
log:
  # DEBUG, INFO, WARN or ERROR
  level: "{{ .LogLevel }}"
  # text or json
  format: "{{ .LogFormat }}"
  # Rotated log file; empty logs to stderr
  file: "{{ .LogFile }}"

# Anthropic API, used for narrative recommendations
anthropic:
  # api_key: sk-ant-...  (or set ANTHROPIC_API_KEY)
  model: "{{ .AnthropicModel }}"

# Narrative recommendations
narrative:
  # Ask the narrative service by default (same as --ai)
  enabled: {{ .NarrativeEnabled }}
  # Give up and use the built-in recommendations after this long
  timeout: "{{ .NarrativeTimeout }}"

# Analytics defaults
analytics:
  # Open tasks listed by priorities and report (0 for all)
  priority_limit: {{ .PriorityLimit }}
  # Chat activity window in days
  chat_window_days: {{ .ChatWindowDays }}

# HTTP API port for 'pulse serve'
port: {{ .Port }}
`

type configTemplateData struct {
	StateDir         string
	DBPath           string
	LogLevel         string
	LogFormat        string
	LogFile          string
	AnthropicModel   string
	NarrativeEnabled bool
	NarrativeTimeout string
	PriorityLimit    int
	ChatWindowDays   int
	Port             int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:         viper.GetString("state_dir"),
		DBPath:           viper.GetString("db_path"),
		LogLevel:         viper.GetString("log.level"),
		LogFormat:        viper.GetString("log.format"),
		LogFile:          viper.GetString("log.file"),
		AnthropicModel:   viper.GetString("anthropic.model"),
		NarrativeEnabled: viper.GetBool("narrative.enabled"),
		NarrativeTimeout: viper.GetDuration("narrative.timeout").String(),
		PriorityLimit:    viper.GetInt("analytics.priority_limit"),
		ChatWindowDays:   viper.GetInt("analytics.chat_window_days"),
		Port:             viper.GetInt("port"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "state_dir", EnvVar: "PULSE_STATE_DIR"},
	{Key: "db_path", EnvVar: "PULSE_DB_PATH"},
	{Key: "log.level", EnvVar: "PULSE_LOG_LEVEL"},
	{Key: "log.format", EnvVar: "PULSE_LOG_FORMAT"},
	{Key: "log.file", EnvVar: "PULSE_LOG_FILE"},
	{Key: "anthropic.api_key", EnvVar: "PULSE_ANTHROPIC_API_KEY"},
	{Key: "anthropic.model", EnvVar: "PULSE_ANTHROPIC_MODEL"},
	{Key: "narrative.enabled", EnvVar: "PULSE_NARRATIVE_ENABLED"},
	{Key: "narrative.timeout", EnvVar: "PULSE_NARRATIVE_TIMEOUT"},
	{Key: "analytics.priority_limit", EnvVar: "PULSE_ANALYTICS_PRIORITY_LIMIT"},
	{Key: "analytics.chat_window_days", EnvVar: "PULSE_ANALYTICS_CHAT_WINDOW_DAYS"},
	{Key: "port", EnvVar: "PULSE_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "anthropic.api_key" {
			val = maskSecret(viper.GetString(k.Key))
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// maskSecret keeps the last four characters of a non-empty secret.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'pulse config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
