package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const forceFlagName = "force"

// initCmd represents the init command.
var initCmd = newInitCmd()

const initLongDescription = `Write a sourcerer.yaml populated with the current HTTP, output and logging
settings so repeated runs against the same site can share them. Values come
from the built-in defaults, any .env file and SOURCERER_* environment
variables, so exporting SOURCERER_HTTP_HEADERS="Cookie: session=..." before
running init stores the session header in the file.

The file is written to DIR (default: the current directory). An existing file
is kept unless --force is given.`

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Generate a sourcerer.yaml configuration file",
		Long:  initLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := configFolderPath
			if len(args) == 1 {
				dir = args[0]
			}

			targetPath, err := writeConfigFile(dir, force)
			if err != nil {
				return err
			}

			cmd.Printf("Wrote %s\n", targetPath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, forceFlagName, false, "overwrite an existing configuration file")

	return cmd
}

// writeConfigFile stores the effective viper settings as dir/sourcerer.yaml.
func writeConfigFile(dir string, force bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	targetPath := filepath.Join(dir, configFileName)

	write := viper.SafeWriteConfigAs
	if force {
		write = viper.WriteConfigAs
	}

	if err := write(targetPath); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return targetPath, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
