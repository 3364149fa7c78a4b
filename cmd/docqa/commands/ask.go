package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var documentID string
	var showClauses bool

	cmd := &cobra.Command{
		Use:   "ask --doc <id> <question>",
		Short: "Ask a question about an ingested document",
		Long: `Answer a question from a document ingested earlier. The document must be
in the catalog, which only outlives a single invocation with the qdrant store.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.catalog.Get(ctx, documentID); err != nil {
				if errors.Is(err, domain.ErrNotFound) && a.cfg.VectorStore.Type != "qdrant" {
					return fmt.Errorf("%w; the memory vector store keeps nothing between runs, use `docqa run` or the qdrant store", err)
				}
				return err
			}

			question := strings.Join(args, " ")
			ans := a.svc.AnswerAll(ctx, documentID, []string{question})[0]
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ans.Text)
			if showClauses {
				for _, c := range ans.Clauses {
					fmt.Fprintf(out, "\n[Clause %d] score=%.3f\n%s\n", c.Chunk.Index, c.Score, c.Chunk.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "doc", "", "Document ID returned by ingest")
	cmd.Flags().BoolVar(&showClauses, "clauses", false, "Print the clauses the answer is based on")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}
