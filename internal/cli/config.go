package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/pygillier/nightswitch/internal/config"
)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nightswitch configuration",
		Long:  `Open the configuration file in your editor, print its path, or regenerate its JSON schema.`,
		RunE:  openConfig,
	}

	cmd.Flags().Bool("path", false, "Print the full path of the config file")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Regenerate the config JSON schema",
		Long:  "Write config.schema.json next to the config file, for editor completion and validation.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return config.GenerateSchemaFile()
		},
	}
	cmd.AddCommand(schemaCmd)

	return cmd
}

// openConfig opens the config file in the user's editor or prints its path.
func openConfig(cmd *cobra.Command, _ []string) error {
	// Loading creates the file with commented defaults on first run.
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config did not load cleanly: %v\n", err)
	}
	configPath, err := config.GetConfigFile()
	if err != nil {
		return fmt.Errorf("failed to get config file path: %w", err)
	}

	printPath, _ := cmd.Flags().GetBool("path")
	if printPath {
		fmt.Println(configPath)
		return nil
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		return fmt.Errorf("no editor defined: set $VISUAL or $EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	return nil
}
