package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"consilium/internal/engine"
	"consilium/internal/models"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist <plan|code|analysis|report>",
	Short: "Print the review checklist for a mode",
	Long: `Print the mode-specific checklist embedded in every round-1 prompt, so
you can see exactly what the panel is asked to check.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := models.ParseMode(args[0])
		if err != nil {
			return &configError{err: err}
		}
		fmt.Fprintln(ui.Out, engine.Checklist(mode))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checklistCmd)
}
