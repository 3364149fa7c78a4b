package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// NoInformationAnswer is returned without calling the generator when
// retrieval finds nothing.
const NoInformationAnswer = "I couldn't find relevant information in the document to answer your question."

const promptTemplate = `You are a document analysis assistant for insurance, legal, HR and compliance documents.

Answer the user question using the document clauses below.

DOCUMENT CLAUSES:
%s

USER QUESTION:
%s

INSTRUCTIONS:
1. Base the answer ONLY on the document clauses above.
2. If the clauses do not contain sufficient information, say so clearly.
3. Cite clause numbers, e.g. [Clause 3], when they support the answer.
4. Be concise, precise and professional.

ANSWER:`

// BuildPrompt renders the clauses as "[Clause N]: text" blocks, where N is the
// chunk's position in its document, followed by the question.
func BuildPrompt(question string, clauses []domain.SearchResult) string {
	blocks := make([]string, len(clauses))
	for i, c := range clauses {
		blocks[i] = fmt.Sprintf("[Clause %d]: %s", c.Chunk.Index, c.Chunk.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(blocks, "\n\n"), question)
}

// Answer answers question from the top matching chunks of documentID. It never
// fails outright: problems are reported in Answer.Text and Answer.Err.
func (s *RAGService) Answer(ctx context.Context, question, documentID string) domain.Answer {
	ans := domain.Answer{Question: question}
	if strings.TrimSpace(question) == "" {
		ans.Err = fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
		ans.Text = "Please provide a question."
		return ans
	}

	clauses := s.Retrieve(ctx, question, documentID)
	if len(clauses) == 0 {
		ans.Text = NoInformationAnswer
		ans.Reasoning = "No relevant document sections found"
		return ans
	}
	ans.Clauses = clauses

	if s.Generator == nil {
		ans.Err = fmt.Errorf("%w: no generator configured", domain.ErrGeneration)
	} else {
		text, err := s.Generator.Generate(ctx, BuildPrompt(question, clauses))
		if err == nil {
			ans.Text = text
			ans.Reasoning = fmt.Sprintf("Answer based on similarity search over %d document clauses", len(clauses))
			return ans
		}
		if !errors.Is(err, domain.ErrGeneration) {
			err = fmt.Errorf("%w: %w", domain.ErrGeneration, err)
		}
		ans.Err = err
	}
	s.Logger.Error("answer generation failed", "document", documentID, "err", ans.Err)
	ans.Text = "Error generating answer: " + ans.Err.Error()
	ans.Reasoning = "Error occurred during answer generation"
	return ans
}

// Retrieve returns up to TopK chunks of documentID most similar to question.
// Failures are logged and yield no results.
func (s *RAGService) Retrieve(ctx context.Context, question, documentID string) []domain.SearchResult {
	embedded, err := s.Embedder.Embed(ctx, []string{question})
	if err != nil || len(embedded.Vectors) != 1 {
		s.Logger.Warn("query embedding failed", "document", documentID, "err", err)
		return nil
	}
	if embedded.Strategy == domain.StrategyFallback {
		s.Logger.Warn("query embedded with random fallback vector", "err", embedded.Err)
	}
	results, err := s.Index.Query(ctx, embedded.Vectors[0], s.opts.TopK, documentID)
	if err != nil {
		s.Logger.Warn("vector query failed", "document", documentID, "err", err)
		return nil
	}
	return results
}

// AnswerAll answers questions in order and records each in the query log.
func (s *RAGService) AnswerAll(ctx context.Context, documentID string, questions []string) []domain.Answer {
	answers := make([]domain.Answer, 0, len(questions))
	for _, q := range questions {
		ans := s.Answer(ctx, q, documentID)
		answers = append(answers, ans)
		if errors.Is(ans.Err, domain.ErrInvalidInput) {
			continue
		}
		err := s.Catalog.RecordQuery(ctx, domain.QueryRecord{
			DocumentID:    documentID,
			Question:      q,
			Answer:        ans.Text,
			Justification: ans.Clauses,
		})
		if err != nil {
			s.Logger.Warn("query log write failed", "document", documentID, "err", err)
		}
	}
	return answers
}

// Run ingests src and answers every question against it. Only an ingest
// failure is returned as an error.
func (s *RAGService) Run(ctx context.Context, src domain.Source, questions []string) ([]domain.Answer, domain.IngestResult, error) {
	res := s.Ingest(ctx, src)
	if !res.Success {
		return nil, res, res.Err
	}
	return s.AnswerAll(ctx, res.DocumentID, questions), res, nil
}
