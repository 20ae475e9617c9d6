package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/amrsdek/MedMate-App/internal/model"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "List user feedback comments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		comments, err := st.ListFeedback(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "feedback list")
		}
		if len(comments) == 0 {
			fmt.Fprintln(os.Stderr, "No feedback yet.")
			return nil
		}
		formatFeedback(os.Stdout, comments)
		return nil
	},
}

// formatFeedback writes comments as a table, newest first as stored.
func formatFeedback(out io.Writer, comments []model.Comment) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tRATING\tTEXT")
	for _, c := range comments {
		rating := "-"
		if c.Rating > 0 {
			rating = fmt.Sprintf("%d/5", c.Rating)
		}
		text := strings.Join(strings.Fields(c.Text), " ")
		if r := []rune(text); len(r) > 60 {
			text = string(r[:57]) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.CreatedAt.Format("2006-01-02 15:04"), rating, text)
	}
	_ = w.Flush()
}

func init() {
	feedbackCmd.Flags().Int("limit", 50, "max number of comments to display")
	rootCmd.AddCommand(feedbackCmd)
}
