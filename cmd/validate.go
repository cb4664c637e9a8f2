package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/router/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, then print the effective
configuration (file values merged with defaults and ROUTER_* environment
overrides) as YAML.

Examples:
  router validate -c /etc/router/router.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	data, err := yaml.Marshal(struct {
		Router *config.Config `yaml:"router"`
	}{cfg})
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = out.Write(data)
	return err
}
