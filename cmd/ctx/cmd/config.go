package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ctxhq/ctx/internal/ctxconfig"
	"github.com/ctxhq/ctx/internal/errorkit"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit ctx's configuration",
	}
	cmd.AddCommand(
		newConfigGetCmd(app),
		newConfigSetCmd(app),
		newConfigListCmd(app),
		newConfigResetCmd(app),
	)
	return cmd
}

func newConfigGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := configField(app.Config, args[0])
			if err != nil {
				return err
			}
			if app.JSON {
				return app.outputJSON(map[string]any{args[0]: value})
			}
			fmt.Fprintf(app.Out, "%v\n", value)
			return nil
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one config value and persist it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setConfigField(app.Config, args[0], args[1]); err != nil {
				return err
			}
			if err := ctxconfig.Validate(app.Config); err != nil {
				return err
			}
			if err := ctxconfig.Save(app.Dir, app.Config); err != nil {
				return err
			}
			if app.JSON {
				return app.outputJSON(map[string]string{args[0]: args[1]})
			}
			fmt.Fprintf(app.Out, "%s %s = %s\n", app.Styles.Success.Render("Set"), args[0], args[1])
			return nil
		},
	}
}

func newConfigListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the full resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.JSON {
				return app.outputJSON(app.Config)
			}
			for _, line := range configLines(app.Config) {
				fmt.Fprintln(app.Out, line)
			}
			return nil
		},
	}
}

func newConfigResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset config.toml to defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults := ctxconfig.Default()
			if err := ctxconfig.Save(app.Dir, defaults); err != nil {
				return err
			}
			app.Config = defaults
			if app.JSON {
				return app.outputJSON(defaults)
			}
			fmt.Fprintf(app.Out, "%s config.toml\n", app.Styles.Success.Render("Reset"))
			return nil
		},
	}
}

// configKeys maps spec.md §6's dotted config keys onto struct field
// paths, avoiding a reflection-based generic dotted-path walker for a
// schema this small and fixed.
var configKeys = map[string]func(c *ctxconfig.Config) *string{
	"default_provider": func(c *ctxconfig.Config) *string { return &c.DefaultProvider },
	"default_model":    func(c *ctxconfig.Config) *string { return &c.DefaultModel },
	"embedding.provider": func(c *ctxconfig.Config) *string { return &c.Embedding.Provider },
	"embedding.model":    func(c *ctxconfig.Config) *string { return &c.Embedding.Model },
	"eval.golden_path":   func(c *ctxconfig.Config) *string { return &c.Eval.GoldenPath },
}

var configIntKeys = map[string]func(c *ctxconfig.Config) *int{
	"embedding.batch_size": func(c *ctxconfig.Config) *int { return &c.Embedding.BatchSize },
	"search.top_k":         func(c *ctxconfig.Config) *int { return &c.Search.TopK },
	"eval.default_k":       func(c *ctxconfig.Config) *int { return &c.Eval.DefaultK },
}

var configBoolKeys = map[string]func(c *ctxconfig.Config) *bool{
	"search.rerank":          func(c *ctxconfig.Config) *bool { return &c.Search.Rerank },
	"observability.enabled":  func(c *ctxconfig.Config) *bool { return &c.Observability.Enabled },
}

func configField(cfg *ctxconfig.Config, key string) (any, error) {
	if get, ok := configKeys[key]; ok {
		return *get(cfg), nil
	}
	if get, ok := configIntKeys[key]; ok {
		return *get(cfg), nil
	}
	if get, ok := configBoolKeys[key]; ok {
		return *get(cfg), nil
	}
	return nil, unknownConfigKey(key)
}

func setConfigField(cfg *ctxconfig.Config, key, value string) error {
	if get, ok := configKeys[key]; ok {
		*get(cfg) = value
		return nil
	}
	if get, ok := configIntKeys[key]; ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return errorkit.Validation(fmt.Sprintf("%q expects an integer, got %q", key, value), err)
		}
		*get(cfg) = n
		return nil
	}
	if get, ok := configBoolKeys[key]; ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errorkit.Validation(fmt.Sprintf("%q expects true/false, got %q", key, value), err)
		}
		*get(cfg) = b
		return nil
	}
	return unknownConfigKey(key)
}

func unknownConfigKey(key string) error {
	return errorkit.Validation("unknown config key "+key, nil).
		WithSuggestion("run `ctx config list` to see every recognized key")
}

// configLines renders a flat "key = value" view for text-mode `config
// list`, in the same dotted-key vocabulary set/get use.
func configLines(cfg *ctxconfig.Config) []string {
	keys := make([]string, 0, len(configKeys)+len(configIntKeys)+len(configBoolKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	for k := range configIntKeys {
		keys = append(keys, k)
	}
	for k := range configBoolKeys {
		keys = append(keys, k)
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := configField(cfg, k)
		lines = append(lines, fmt.Sprintf("%s = %v", k, v))
	}
	return lines
}
