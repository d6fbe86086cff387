package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	finity "github.com/finity-lang/finity"
)

const defaultConfigName = ".finity.yaml"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		path := defaultConfigName
		if cfgFile != "" {
			path = cfgFile
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(os.Stderr, "%s already exists, not overwriting\n", path)
			os.Exit(1)
		}
		if err := finity.WriteDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", path)
	},
}
