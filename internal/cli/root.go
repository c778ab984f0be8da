package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/phishfuse/internal/model"
)

// Version is set at build time with -ldflags "-X .../cli.Version=..."
var Version = "v0.3.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "phishfuse",
	Short: "phishfuse - phishing verdicts from fused URL, network and page signals",
	Long: `phishfuse scores a URL for phishing risk.

Independent classifiers look at the URL, the host, the HTML, the visible text
and the page's form behavior. Their probabilities are fused into one verdict
(Legitimate, Suspicious or Phishing) with a risk tier and human-readable
reasons. Every verdict is appended to a scan ledger.

When the page cannot be fetched the verdict falls back to the URL and network
signals and the report says so.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("phishfuse %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.phishfuse/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("ledger-backend", "", "ledger backend: csv, sqlite, postgres")
	rootCmd.PersistentFlags().String("ledger-dir", "", "ledger directory (csv, sqlite)")
	rootCmd.PersistentFlags().String("ledger-dsn", "", "postgres connection string")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("ledger.backend", rootCmd.PersistentFlags().Lookup("ledger-backend"))
	_ = viper.BindPFlag("ledger.dir", rootCmd.PersistentFlags().Lookup("ledger-dir"))
	_ = viper.BindPFlag("ledger.dsn", rootCmd.PersistentFlags().Lookup("ledger-dsn"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads .env, the config file and PHISHFUSE_* variables
func initConfig() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	registerDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".phishfuse"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("PHISHFUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults teaches viper every key so env vars can override keys
// absent from the config file
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaults("", tree)

	// omitted from the YAML when empty
	for _, key := range []string{"http.http_proxy", "http.https_proxy", "http.no_proxy", "ledger.dsn", "models.dir", "llm.api_key", "llm.base_url"} {
		viper.SetDefault(key, "")
	}
}

func setDefaults(prefix string, tree map[string]any) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}

// loadConfig merges defaults, file, env and bound flags into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.LLM.APIKey == "" && strings.EqualFold(cfg.LLM.Provider, "openai") {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Ledger.Backend == "postgres" && cfg.Ledger.DSN == "" {
		cfg.Ledger.DSN = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger writes text logs to stderr; --verbose enables debug
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
