package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"docqa/internal/domain"
)

const (
	DefaultMaxSize = 1000
	DefaultOverlap = 200
)

// SentenceChunker packs whole sentences into chunks of roughly maxSize
// characters, seeding each chunk with the trailing overlap characters of its
// predecessor. A sentence longer than maxSize is never split.
type SentenceChunker struct {
	maxSize int
	overlap int
}

// NewSentenceChunker requires maxSize > overlap >= 0.
func NewSentenceChunker(maxSize, overlap int) (*SentenceChunker, error) {
	if overlap < 0 || maxSize <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d >= 0", domain.ErrInvalidInput, maxSize, overlap)
	}
	return &SentenceChunker{maxSize: maxSize, overlap: overlap}, nil
}

// Chunk splits the document content. Offsets refer to the whitespace-normalized
// text. With overlap > 0 a chunk starts exactly overlap characters before its
// predecessor's end, so its text may begin mid-word or with a space.
func (c *SentenceChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := []rune(Normalize(document.Content))
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	closeChunk := func(start, end int) {
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			Index:      len(chunks),
			Text:       string(text[start:end]),
			Start:      start,
			End:        end,
		})
	}

	start, end := sentences[0].start, sentences[0].end
	for _, s := range sentences[1:] {
		if s.end-start > c.maxSize {
			closeChunk(start, end)
			if c.overlap == 0 {
				start = s.start
			} else {
				start = max(end-c.overlap, start)
			}
		}
		end = s.end
	}
	closeChunk(start, end)
	return chunks, nil
}

// Normalize collapses every run of whitespace to one space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

type span struct{ start, end int }

// splitSentences returns sentence spans ending after a run of '.', '!' or '?'.
// Leading spaces are skipped, and a unit made only of terminators ("...",
// "?!") is dropped, so every span holds some text besides its boundary.
func splitSentences(text []rune) []span {
	var out []span
	start := -1
	content := false
	for i := 0; i < len(text); i++ {
		if start < 0 {
			if unicode.IsSpace(text[i]) {
				continue
			}
			start, content = i, false
		}
		if !isTerminator(text[i]) {
			if !unicode.IsSpace(text[i]) {
				content = true
			}
			continue
		}
		j := i + 1
		for j < len(text) && isTerminator(text[j]) {
			j++
		}
		if content {
			out = append(out, span{start, j})
		}
		start = -1
		i = j - 1
	}
	if start >= 0 && content {
		end := len(text)
		for end > start && unicode.IsSpace(text[end-1]) {
			end--
		}
		out = append(out, span{start, end})
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
