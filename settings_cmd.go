package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/storycast/playback"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	Short:   "Edit the storycast settings file",
	Long:    "\nEdit the storycast settings file. We'll use EDITOR to determine which editor to use. If the settings file doesn't exist, it will be created.",
	Example: "storycast settings",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		store, err := playback.NewViperStore(settingsPath())
		if err != nil {
			return err
		}
		if _, err := os.Stat(store.Path()); os.IsNotExist(err) {
			if err := store.Save(playback.DefaultSettings()); err != nil {
				return fmt.Errorf("unable to create settings file: %w", err)
			}
		}

		c, err := editor.Cmd("storycast", store.Path())
		if err != nil {
			return fmt.Errorf("unable to open settings file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		// Re-validate so a broken edit is reported immediately.
		if _, err := store.Load(); err != nil {
			return fmt.Errorf("settings file is invalid: %w", err)
		}
		fmt.Println("Wrote settings file to:", store.Path())
		return nil
	},
}
