package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amrsdek/MedMate-App/internal/model"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the instructions sent to the AI model",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("prompts")
		catalog, err := loadCatalog(path)
		if err != nil {
			return err
		}

		if list, _ := cmd.Flags().GetBool("list"); list {
			for _, name := range catalog.CategoryNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, catalog.Label(model.Category(name)))
			}
			return nil
		}

		catFlag, _ := cmd.Flags().GetString("category")
		cat, err := catalog.ParseCategory(catFlag)
		if err != nil {
			return err
		}
		handwritten, _ := cmd.Flags().GetBool("handwritten")
		fmt.Fprintln(cmd.OutOrStdout(), catalog.Build(cat, handwritten).Text)
		return nil
	},
}

func init() {
	promptCmd.Flags().String("category", string(model.CategoryNotes), "content category")
	promptCmd.Flags().Bool("handwritten", false, "include the handwriting instructions")
	promptCmd.Flags().Bool("list", false, "list the available categories")
	promptCmd.Flags().String("prompts", "", "path to a prompts YAML file replacing the built-in instructions")
	rootCmd.AddCommand(promptCmd)
}
