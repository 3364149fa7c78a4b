package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrNotFitted is returned by Transform before a successful Fit or Restore.
var ErrNotFitted = errors.New("tfidf vectorizer not fitted")

// Options controls vocabulary construction.
type Options struct {
	// MaxFeatures keeps only the most frequent terms; zero keeps all.
	MaxFeatures int
	// MinDF drops terms that appear in fewer documents.
	MinDF int
	// MaxDF drops terms that appear in more than this fraction of documents.
	MaxDF float64
	// NGramMax is the longest word n-gram added to the vocabulary.
	NGramMax int
}

// DefaultOptions returns options sized for a 384-dimension index.
func DefaultOptions() Options {
	return Options{MaxFeatures: 384, MinDF: 1, MaxDF: 1.0, NGramMax: 2}
}

// State is the serializable form of a fitted vectorizer.
type State struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// Vectorizer is a TF-IDF model whose vocabulary is fitted exactly once.
// It is safe for concurrent use; racing Fit calls are serialized and only the
// first successful one takes effect.
type Vectorizer struct {
	mu           sync.RWMutex
	opts         Options
	vocabulary   map[string]int
	idf          []float64
	fitted       bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(opts Options) *Vectorizer {
	if opts.NGramMax <= 0 {
		opts.NGramMax = 1
	}
	if opts.MinDF <= 0 {
		opts.MinDF = 1
	}
	if opts.MaxDF <= 0 || opts.MaxDF > 1 {
		opts.MaxDF = 1
	}
	return &Vectorizer{
		opts:         opts,
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Fitted reports whether the vocabulary has been built.
func (v *Vectorizer) Fitted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fitted
}

// Size is the number of terms in the fitted vocabulary.
func (v *Vectorizer) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.idf)
}

// Fit builds the vocabulary and IDF weights from corpus. It is a no-op once
// the vectorizer has been fitted. A failed fit leaves the vectorizer unfitted.
func (v *Vectorizer) Fit(corpus []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fitted {
		return nil
	}
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF fit")
	}

	df := make(map[string]int)
	tf := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, term := range v.terms(text) {
			tf[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	maxCount := v.opts.MaxDF * float64(len(corpus))
	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n < v.opts.MinDF || float64(n) > maxCount {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return fmt.Errorf("no terms remain after pruning %d documents", len(corpus))
	}
	if v.opts.MaxFeatures > 0 && len(terms) > v.opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if tf[terms[i]] != tf[terms[j]] {
				return tf[terms[i]] > tf[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.opts.MaxFeatures]
	}
	// Stable, alphabetical column order
	sort.Strings(terms)

	n := float64(len(corpus))
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		// Smoothed IDF
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	v.fitted = true
	return nil
}

// Transform maps each text to an L2-normalized TF-IDF row of length Size().
func (v *Vectorizer) Transform(texts []string) ([][]float64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.fitted {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, len(v.idf))
		for _, term := range v.terms(text) {
			if idx, ok := v.vocabulary[term]; ok {
				vec[idx]++
			}
		}
		norm := 0.0
		for idx := range vec {
			vec[idx] *= v.idf[idx]
			norm += vec[idx] * vec[idx]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range vec {
				vec[idx] /= norm
			}
		}
		out[i] = vec
	}
	return out, nil
}

// State exports the fitted vocabulary in column order.
func (v *Vectorizer) State() (State, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.fitted {
		return State{}, ErrNotFitted
	}
	terms := make([]string, len(v.idf))
	for term, idx := range v.vocabulary {
		terms[idx] = term
	}
	idf := make([]float64, len(v.idf))
	copy(idf, v.idf)
	return State{Terms: terms, IDF: idf}, nil
}

// Restore loads a previously exported state. Like Fit, it has no effect on a
// vectorizer that is already fitted.
func (v *Vectorizer) Restore(s State) error {
	if len(s.Terms) == 0 || len(s.Terms) != len(s.IDF) {
		return fmt.Errorf("invalid tfidf state: %d terms, %d weights", len(s.Terms), len(s.IDF))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fitted {
		return nil
	}
	v.vocabulary = make(map[string]int, len(s.Terms))
	for i, term := range s.Terms {
		v.vocabulary[term] = i
	}
	v.idf = make([]float64, len(s.IDF))
	copy(v.idf, s.IDF)
	v.fitted = true
	return nil
}

// terms returns the unigrams and n-grams of text after stopword removal.
func (v *Vectorizer) terms(text string) []string {
	words := v.tokenize(text)
	out := make([]string, 0, len(words)*v.opts.NGramMax)
	for n := 1; n <= v.opts.NGramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

func (v *Vectorizer) tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := v.tokenPattern.FindAllString(lower, -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if len([]rune(t)) < 2 {
			continue
		}
		if _, isStop := v.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "when", "where", "why", "how", "does", "do", "did", "has", "have", "had", "there", "their", "its", "any", "all", "not", "no", "my", "your", "our",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
