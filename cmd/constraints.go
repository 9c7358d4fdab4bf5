package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/core/constraint"
)

var constraintOpts struct {
	format     string
	file       string
	appliances []string
}

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "Constraint file helpers",
}

var constraintsDefaultsCmd = &cobra.Command{
	Use:   "defaults <appliance>...",
	Short: "Print the default constraint for each appliance",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return constraint.Encode(cmd.OutOrStdout(), constraint.Defaults(args), constraintOpts.format)
	},
}

var constraintsParseCmd = &cobra.Command{
	Use:   "parse <instructions>",
	Short: "Apply free-text instructions to a constraint set and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConstraintsParse,
}

func init() {
	constraintsCmd.PersistentFlags().StringVar(&constraintOpts.format, "format", "yaml", "output format: yaml or json")
	constraintsParseCmd.Flags().StringVarP(&constraintOpts.file, "file", "f", "", "constraint file to start from")
	constraintsParseCmd.Flags().StringSliceVarP(&constraintOpts.appliances, "appliance", "a", nil, "appliance names the instructions may mention")
	constraintsCmd.AddCommand(constraintsDefaultsCmd, constraintsParseCmd)
	rootCmd.AddCommand(constraintsCmd)
}

func runConstraintsParse(cmd *cobra.Command, args []string) error {
	set := constraint.Defaults(constraintOpts.appliances)
	if constraintOpts.file != "" {
		loaded, err := constraint.LoadFile(constraintOpts.file)
		if err != nil {
			return err
		}
		for name, c := range loaded {
			set[name] = c
		}
	}
	if len(set) == 0 {
		return fmt.Errorf("no appliances: pass --file or --appliance")
	}
	text := strings.Join(args, " ")
	overrides := constraint.ParseInstruction(text, set.Names())
	if len(overrides) == 0 {
		return fmt.Errorf("no rule recognised in %q", text)
	}
	out, err := constraint.Apply(set, overrides)
	if err != nil {
		return err
	}
	return constraint.Encode(cmd.OutOrStdout(), out, constraintOpts.format)
}
