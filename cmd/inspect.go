package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	inspectURL    string
	inspectOutput string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Fetch a form and list its questions without answering",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, envOptions{mode: "inspect", noStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Inspect(ctx, inspectURL)
		if err != nil {
			return eris.Wrap(err, "inspect")
		}

		return writeOutput(os.Stdout, inspectOutput, result, func(w io.Writer) error {
			if err := formatQuestions(w, result.Form); err != nil {
				return err
			}
			formatWarnings(w, result.Warnings)
			return nil
		})
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectURL, "url", "", "Google Form URL (required)")
	inspectCmd.Flags().StringVarP(&inspectOutput, "output", "o", formatText, "output format: json, yaml or text")
	_ = inspectCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(inspectCmd)
}
