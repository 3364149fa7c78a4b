package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <url|path>",
		Short: "Index a document",
		Long: `Fetch or read a PDF, DOCX or text document, split it into overlapping
chunks and store their vectors. Ingesting the same source twice is a no-op.

With the memory vector store the index lives only for this invocation; use
the qdrant store to ingest once and ask later.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := ingestOrFail(ctx, a, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Document ID: %s\n", res.DocumentID)
			if res.AlreadyProcessed {
				fmt.Fprintf(out, "Already processed (%d chunks)\n", res.Chunks)
			} else {
				fmt.Fprintln(out, res.Message)
			}
			if res.Summary != "" {
				fmt.Fprintf(out, "Summary: %s\n", res.Summary)
			}
			return nil
		},
	}
}
