package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhatti/gateway-header-mapper/headermapper"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect header mapper configuration files",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Load and validate a YAML or JSON mapper configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := headermapper.LoadConfigFromFile(args[0])
			if err != nil {
				return err
			}
			if err := headermapper.ValidateConfig(config); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d mappings OK\n", args[0], len(config.Mappings))
			return nil
		},
	})

	return configCmd
}

// loadMapper builds a mapper from the --config flag, or an empty mapper
// when the flag is unset.
func loadMapper(cmd *cobra.Command) (*headermapper.HeaderMapper, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	config := &headermapper.Config{}
	if path != "" {
		config, err = headermapper.LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
	}

	mapper := headermapper.NewHeaderMapper(config)
	if err := mapper.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newMapperLogger(cmd)
	if err != nil {
		return nil, err
	}
	mapper.SetLogger(logger)
	return mapper, nil
}
