package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paramind/paramind/internal/config"
)

var initProject bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with default settings",
	Long: `Write a starter configuration file.

By default the file goes to the user config path
(~/.config/paramind/config.yaml). With --project a .paramind.yaml is
created in the current directory instead; project files override the
user config.`,
	RunE: runInitCmd,
}

func init() {
	initCmd.Flags().BoolVar(&initProject, "project", false, "Write .paramind.yaml in the current directory")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if initProject {
		path = ".paramind.yaml"
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Printf("%s Wrote %s\n", color.GreenString("✓"), path)

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Printf("%s ANTHROPIC_API_KEY is not set; set it before running prompts\n", color.YellowString("⚠"))
	}
	return nil
}
