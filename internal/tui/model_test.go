package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type stubAnswerer struct {
	questions []string
	err       error
}

func (s *stubAnswerer) AnswerAll(_ context.Context, documentID string, questions []string) []domain.Answer {
	s.questions = append(s.questions, questions...)
	return []domain.Answer{{
		Question: questions[0],
		Text:     "Thirty days.",
		Err:      s.err,
		Clauses: []domain.SearchResult{
			{Chunk: domain.Chunk{DocumentID: documentID, Index: 1, Text: "Intro. The grace period is thirty days."}, Score: 0.8},
		},
	}}
}

func typeText(m tea.Model, s string) tea.Model {
	for _, r := range s {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestModel_AskFlow(t *testing.T) {
	svc := &stubAnswerer{}
	var m tea.Model = New(context.Background(), svc, Document{ID: "doc", Title: "policy.pdf", Summary: "A policy."})
	assert.Equal(t, "Loading...", m.View())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	assert.Contains(t, m.View(), "policy.pdf")
	assert.Contains(t, m.View(), "No questions yet.")

	m = typeText(m, "What is the grace period?")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.(Model).pending)
	assert.Empty(t, m.(Model).input.Value())

	// A second Enter while waiting is ignored.
	_, again := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	msg := cmd()
	require.IsType(t, answerMsg{}, msg)
	m, _ = m.Update(msg)

	got := m.(Model)
	assert.False(t, got.pending)
	assert.Equal(t, []string{"What is the grace period?"}, svc.questions)
	require.Len(t, got.history, 1)
	assert.Contains(t, got.status, "1 clauses")
	view := got.renderCurrent()
	assert.Contains(t, view, "Q1/1: What is the grace period?")
	assert.Contains(t, view, "Thirty days.")
	assert.Contains(t, view, "[Clause 1]")
}

func TestModel_ErrorAndHistory(t *testing.T) {
	svc := &stubAnswerer{err: errors.New("generation failed")}
	var m tea.Model = New(context.Background(), svc, Document{ID: "doc"})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})

	for _, q := range []string{"first?", "second?"} {
		m = typeText(m, q)
		var cmd tea.Cmd
		m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m, _ = m.Update(cmd())
	}
	got := m.(Model)
	assert.True(t, strings.HasPrefix(got.status, "Error: "))
	assert.Equal(t, 1, got.cursor)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.(Model).cursor)
	assert.Contains(t, m.(Model).renderCurrent(), "first?")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.(Model).cursor)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Intro text. The grace period is thirty days. Other terms apply."
	out := highlightBestSentence(text, "grace period")
	assert.Contains(t, out, "Intro text.")
	assert.Contains(t, out, "Other terms apply.")
	assert.Contains(t, out, "grace period is thirty days.")

	assert.Equal(t, "Intro text. Other.", highlightBestSentence("Intro text. Other.", "nothing matches"))
	assert.Equal(t, "", highlightBestSentence("", "q"))
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("Grace period, grace?")
	assert.Len(t, q, 2)
	assert.Equal(t, 2, tokenOverlapScore(q, "The grace period and the grace days."))
	assert.Equal(t, 0, tokenOverlapScore(q, "Nothing here."))
}
