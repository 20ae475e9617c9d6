package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amrsdek/MedMate-App/internal/instructions"
	"github.com/amrsdek/MedMate-App/internal/model"
	"github.com/amrsdek/MedMate-App/internal/pipeline"
	"github.com/amrsdek/MedMate-App/internal/render"
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert lecture images and PDFs into a Word document",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("convert"); err != nil {
			return err
		}
		ctx := cmd.Context()

		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, ok := model.ParseMode(modeFlag)
		if !ok {
			return eris.Errorf("convert: unknown mode %q (want ai or local)", modeFlag)
		}

		promptsPath, _ := cmd.Flags().GetString("prompts")
		catalog, err := loadCatalog(promptsPath)
		if err != nil {
			return err
		}
		catFlag, _ := cmd.Flags().GetString("category")
		cat, err := catalog.ParseCategory(catFlag)
		if err != nil {
			return err
		}
		handwritten, _ := cmd.Flags().GetBool("handwritten")
		instr := catalog.Build(cat, handwritten)

		batch, err := readBatch(args)
		if err != nil {
			return err
		}

		title, _ := cmd.Flags().GetString("title")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = defaultOutput(title)
		}
		tablesOut, _ := cmd.Flags().GetString("tables")
		autoFallback, _ := cmd.Flags().GetBool("auto-fallback")

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		doc, runErr := runConvert(ctx, env.Pipeline, batch, instr, mode, title, autoFallback, cmd.ErrOrStderr())

		if doc != nil && !doc.Empty() {
			if err := writeDocx(doc, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d section(s))\n", out, len(doc.Results))
			if tablesOut != "" {
				if err := writeTables(doc, tablesOut); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", tablesOut)
			}
		}

		if runErr != nil {
			reportFailure(cmd.ErrOrStderr(), runErr, env.Pipeline.RemoteEnabled())
			return runErr
		}
		return nil
	},
}

// runner is the subset of the orchestrator the convert command needs.
type runner interface {
	Run(ctx context.Context, batch model.Batch, instr model.Instructions, mode model.Mode, opts ...pipeline.RunOption) (*model.AccumulatedDocument, error)
}

// runConvert executes one run and, when allowed, redoes a recoverable AI
// failure with local recognition.
func runConvert(ctx context.Context, r runner, batch model.Batch, instr model.Instructions, mode model.Mode, title string, autoFallback bool, progress io.Writer) (*model.AccumulatedDocument, error) {
	status := pipeline.WithStatus(func(st model.Status) {
		if st.Unit > 0 {
			fmt.Fprintf(progress, "%s: %d/%d %s\n", st.Phase, st.Unit, st.Units, st.Label)
		}
	})

	doc, err := r.Run(ctx, batch, instr, mode, pipeline.WithTitle(title), status)
	if err == nil || mode != model.ModeAI || !autoFallback {
		return doc, err
	}
	fail, ok := pipeline.AsFailure(err)
	if !ok || !fail.Recoverable {
		return doc, err
	}
	zap.L().Warn("remote transcription failed, redoing batch locally",
		zap.String("kind", string(fail.Kind)),
		zap.Int("completed", fail.Completed),
	)
	return r.Run(ctx, batch, instr, model.ModeLocalFallback, pipeline.WithTitle(title), status)
}

// readBatch loads the files in argument order.
func readBatch(paths []string) (model.Batch, error) {
	var batch model.Batch
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return model.Batch{}, eris.Wrapf(err, "convert: read %s", p)
		}
		item, err := model.NewItem(filepath.Base(p), "", data)
		if err != nil {
			return model.Batch{}, eris.Wrapf(err, "convert: %s", p)
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, nil
}

// defaultOutput derives the .docx path from the title.
func defaultOutput(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "medmate"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + ".docx"
}

func writeDocx(doc *model.AccumulatedDocument, path string) error {
	start := time.Now()
	data, err := render.Render(doc)
	if err != nil {
		return eris.Wrap(err, "convert: render docx")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "convert: write %s", path)
	}
	zap.L().Debug("docx written", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func writeTables(doc *model.AccumulatedDocument, path string) error {
	data, err := render.RenderTables(doc)
	if errors.Is(err, render.ErrNoTables) {
		zap.L().Info("document has no tables, skipping workbook")
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "convert: render xlsx")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "convert: write %s", path)
	}
	return nil
}

// reportFailure prints the user-facing failure and the next step, if any.
func reportFailure(w io.Writer, err error, remoteEnabled bool) {
	fail, ok := pipeline.AsFailure(err)
	if !ok {
		fmt.Fprintf(w, "conversion failed: %v\n", err)
		return
	}
	fmt.Fprintln(w, fail.Message())
	if fail.Completed > 0 {
		fmt.Fprintf(w, "%d of %d file(s) were transcribed before the failure and have been saved.\n", fail.Completed, fail.Units)
	}
	if fail.Recoverable {
		fmt.Fprintln(w, "Rerun with --mode local to convert the whole batch with local text recognition.")
	} else if !remoteEnabled && fail.Kind != pipeline.FailureDecode {
		fmt.Fprintln(w, "Set an API key to enable AI transcription.")
	}
}

func init() {
	convertCmd.Flags().String("category", string(model.CategoryNotes), "content category ("+strings.Join(instructions.Default().CategoryNames(), ", ")+")")
	convertCmd.Flags().Bool("handwritten", false, "the pages are handwritten")
	convertCmd.Flags().String("title", "", "document title")
	convertCmd.Flags().String("mode", string(model.ModeAI), "transcription mode (ai or local)")
	convertCmd.Flags().StringP("out", "o", "", "output .docx path (default derived from the title)")
	convertCmd.Flags().String("tables", "", "also export Markdown tables to this .xlsx path")
	convertCmd.Flags().Bool("auto-fallback", false, "redo the batch with local recognition when AI transcription hits a recoverable failure")
	convertCmd.Flags().String("prompts", "", "path to a prompts YAML file replacing the built-in instructions")
	rootCmd.AddCommand(convertCmd)
}
