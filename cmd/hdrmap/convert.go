package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhatti/gateway-header-mapper/headermapper"
)

func newFlattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten [file]",
		Short: "Join multi-valued headers into one value per name",
		Long: `Reads a JSON object of header name to list of values and prints a JSON
object of header name to a single value. Values are joined with ",".

Example:
  echo '{"Accept":["a","b"],"Content-Length":["3"]}' | hdrmap flatten --transport`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFlatten,
	}
	cmd.Flags().StringSlice("exclude", nil, "Header names to drop (exact match, repeatable)")
	cmd.Flags().Bool("transport", false, "Drop transport-managed headers such as Content-Length")
	return cmd
}

func runFlatten(cmd *cobra.Command, args []string) error {
	exclude, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return fmt.Errorf("failed to get exclude flag: %w", err)
	}
	transport, err := cmd.Flags().GetBool("transport")
	if err != nil {
		return fmt.Errorf("failed to get transport flag: %w", err)
	}

	var input map[string][]string
	if err := decodeInput(cmd, args, &input); err != nil {
		return err
	}

	filters := []headermapper.HeaderFilter{headermapper.Exclude(exclude...)}
	if transport {
		filters = append(filters, headermapper.TransportManaged)
	}
	return writeJSON(cmd, headermapper.Flatten(input, filters...).Map())
}

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand [file]",
		Short: "Wrap flat header values into single element lists",
		Long: `Reads a JSON object of header name to value (or null) and prints a JSON
object of header name to list of values. Null values are dropped and values
are never split on ",".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input map[string]*string
			if err := decodeInput(cmd, args, &input); err != nil {
				return err
			}
			return writeJSON(cmd, headermapper.ExpandNullable(input).Map())
		},
	}
}

func decodeInput(cmd *cobra.Command, args []string, v interface{}) error {
	in, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := json.NewDecoder(in).Decode(v); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
