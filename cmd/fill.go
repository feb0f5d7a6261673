package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/report"
)

var (
	fillURL     string
	fillProfile string
	fillOutput  string
	fillXLSX    string
	fillNoStore bool
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Answer a form from the profile and print a pre-fill link",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, envOptions{
			mode:        "fill",
			profilePath: fillProfile,
			noStore:     fillNoStore,
		})
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, fillURL)
		if err != nil {
			return eris.Wrap(err, "fill")
		}
		env.logCost("fill")

		zap.L().Info("fill complete",
			zap.String("form_url", result.FormURL),
			zap.Int("answers", len(result.Answers)),
			zap.Int("unresolved", len(result.Unresolved())),
			zap.Int("warnings", len(result.Warnings)),
		)

		if fillXLSX != "" {
			if err := report.WriteXLSX(fillXLSX, result); err != nil {
				return err
			}
			zap.L().Info("review workbook written", zap.String("path", fillXLSX))
		}

		return writeOutput(os.Stdout, fillOutput, result, func(w io.Writer) error {
			return formatFillText(w, result)
		})
	},
}

func formatFillText(w io.Writer, result *model.RunResult) error {
	_, err := io.WriteString(w, report.Summary(result))
	if err != nil {
		return err
	}
	if unresolved := result.Unresolved(); len(unresolved) > 0 {
		fmt.Fprintf(w, "\n%d question(s) need manual entry.\n", len(unresolved))
	}
	return nil
}

func init() {
	fillCmd.Flags().StringVar(&fillURL, "url", "", "Google Form URL (required)")
	fillCmd.Flags().StringVar(&fillProfile, "profile", "", "profile text file (default from config)")
	fillCmd.Flags().StringVarP(&fillOutput, "output", "o", formatText, "output format: json, yaml or text")
	fillCmd.Flags().StringVar(&fillXLSX, "xlsx", "", "write a review workbook to this path")
	fillCmd.Flags().BoolVar(&fillNoStore, "no-store", false, "do not record the run or use the page cache")
	_ = fillCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(fillCmd)
}
