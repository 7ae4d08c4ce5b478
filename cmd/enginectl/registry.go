package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thraizz/mage-engine-go/internal/game/triggers"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Work with ability registry files",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Parse registry files and list their cards",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, path := range args {
			reg, err := triggers.LoadRegistryFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(out, "%s: %d cards\n", path, reg.Len())
			for _, name := range reg.Names() {
				abilities, _ := reg.Lookup(name)
				fmt.Fprintf(out, "  %s (%d triggered, %d static)\n", name, len(abilities.Triggered), len(abilities.Static))
				for _, ability := range abilities.Triggered {
					fmt.Fprintf(out, "    - %s on %s\n", ability.Name, ability.Trigger.Kind)
				}
			}
		}
		return nil
	},
}

func init() {
	registryCmd.AddCommand(registryValidateCmd)
	rootCmd.AddCommand(registryCmd)
}
