package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mydehq/imgpack/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the imgpack configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := configPath()
		if err != nil {
			fail(err)
		}
		if err := config.GenerateDefault(path, flagForce); err != nil {
			fail(fmt.Errorf("%w (use --force to overwrite)", err))
		}
		logger.Info(fmt.Sprintf("%s: %s", StyleHeader.Render("Config written"), StylePath.Render(path)))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fail(err)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fail(fmt.Errorf("failed to marshal config: %w", err))
		}
		if cfg.Path != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", StyleDim.Render("# "+cfg.Path))
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := configPath()
		if err != nil {
			fail(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	RootCmd.AddCommand(configCmd)
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.GlobalPath()
}
