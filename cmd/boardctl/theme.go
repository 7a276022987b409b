package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Get or set the UI theme",
}

func init() {
	themeCmd.AddCommand(themeGetCmd)
	themeCmd.AddCommand(themeSetCmd)
}

var themeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current theme",
	RunE: func(cmd *cobra.Command, args []string) error {
		theme, err := sessions.Theme()
		if err != nil {
			return err
		}
		fmt.Println(theme)
		return nil
	},
}

var themeSetCmd = &cobra.Command{
	Use:   "set {light|dark|system}",
	Short: "Set the theme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions.SetTheme(args[0]); err != nil {
			return err
		}
		printSuccess("theme set to %s\n", args[0])
		return nil
	},
}
