package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// configKeys maps a config file key to its setter.
var configKeys = map[string]func(cfg *CLIConfig, v string) error{
	"server_url":       func(cfg *CLIConfig, v string) error { cfg.ServerURL = strings.TrimRight(v, "/"); return nil },
	"identity_url":     func(cfg *CLIConfig, v string) error { cfg.IdentityURL = strings.TrimRight(v, "/"); return nil },
	"token_url":        func(cfg *CLIConfig, v string) error { cfg.TokenURL = v; return nil },
	"identity_api_key": func(cfg *CLIConfig, v string) error { cfg.IdentityAPIKey = v; return nil },
	"db_path":          func(cfg *CLIConfig, v string) error { cfg.DBPath = v; return nil },
	"rate_limit": func(cfg *CLIConfig, v string) error {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps < 0 {
			return fmt.Errorf("rate_limit must be a non-negative number, got %q", v)
		}
		cfg.RateLimit = rps
		return nil
	},
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the config file",
		Long:  "Reads and writes ~/.config/hn/config.yaml. Environment variables and flags still take precedence.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective settings",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:       "set <key> <value>",
			Short:     "Set a config file value",
			Long:      "Keys: " + strings.Join(configKeyNames(), ", ") + ". An empty value resets the key to its default.",
			Args:      cobra.ExactArgs(2),
			ValidArgs: configKeyNames(),
			RunE:      runConfigSet,
		},
	)

	return cmd
}

func configKeyNames() []string {
	names := make([]string, 0, len(configKeys))
	for k := range configKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	s.IdentityAPIKey = maskKey(s.IdentityAPIKey)

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, map[string]interface{}{
			"server_url":       s.ServerURL,
			"identity_url":     s.IdentityURL,
			"token_url":        s.TokenURL,
			"identity_api_key": s.IdentityAPIKey,
			"db_path":          s.DBPath,
			"rate_limit":       s.RateLimit,
			"dev_mode":         s.DevMode,
		})
	}

	fmt.Fprintf(out, "server_url:       %s\n", s.ServerURL)
	fmt.Fprintf(out, "identity_url:     %s\n", orDefault(s.IdentityURL))
	fmt.Fprintf(out, "token_url:        %s\n", orDefault(s.TokenURL))
	fmt.Fprintf(out, "identity_api_key: %s\n", orDefault(s.IdentityAPIKey))
	fmt.Fprintf(out, "db_path:          %s\n", s.DBPath)
	fmt.Fprintf(out, "rate_limit:       %g\n", s.RateLimit)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), strings.TrimSpace(args[1])
	set, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (want one of %s)", args[0], strings.Join(configKeyNames(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if value == "" {
		value = "0"
		if key != "rate_limit" {
			value = ""
		}
	}
	if err := set(&cfg, value); err != nil {
		return err
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s.\n", key)
	return nil
}

// maskKey keeps only the last four characters of a secret.
func maskKey(k string) string {
	if len(k) <= 4 {
		return k
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}
