package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type runOutput struct {
	Answers []string `json:"answers"`
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var questions []string

	cmd := &cobra.Command{
		Use:   "run <url|path> -q <question> [-q <question>...]",
		Short: "Ingest a document and answer questions as JSON",
		Long: `Ingest a document and answer every question in order, printing
{"answers": [...]} with one answer per question.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			answers, _, err := a.svc.Run(ctx, sourceFromArg(args[0]), questions)
			if err != nil {
				return fmt.Errorf("ingesting %s: %w", args[0], err)
			}
			out := runOutput{Answers: make([]string, len(answers))}
			for i, ans := range answers {
				out.Answers[i] = ans.Text
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "Question to answer (repeatable)")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}
