package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenizerConfig controls keyword extraction.
type TokenizerConfig struct {
	// StopWords are dropped after lower-casing.
	StopWords []string
	// MinLength is the minimum rune count a keyword must reach.
	MinLength int
	// MaxKeywords caps the result; zero or less means no cap.
	MaxKeywords int
	// TrimPunctuation strips leading and trailing punctuation from each token.
	TrimPunctuation bool
}

// DefaultTokenizerConfig keeps tokens longer than three characters and at most ten keywords.
// Tokens are split on whitespace only, so trailing punctuation stays part of the token.
func DefaultTokenizerConfig() TokenizerConfig {
	return TokenizerConfig{
		StopWords:   defaultStopWords(),
		MinLength:   4,
		MaxKeywords: 10,
	}
}

// Extractor turns free text into an ordered keyword set.
type Extractor struct {
	cfg   TokenizerConfig
	stops map[string]struct{}
}

// NewExtractor builds an extractor, filling unset limits from the defaults.
func NewExtractor(cfg TokenizerConfig) *Extractor {
	defaults := DefaultTokenizerConfig()
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaults.MinLength
	}
	if cfg.StopWords == nil {
		cfg.StopWords = defaults.StopWords
	}
	stops := make(map[string]struct{}, len(cfg.StopWords))
	for _, word := range cfg.StopWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			stops[word] = struct{}{}
		}
	}
	return &Extractor{cfg: cfg, stops: stops}
}

// Extract lower-cases text, splits on whitespace, drops stop words and short tokens and
// deduplicates keeping first-occurrence order.
func (e *Extractor) Extract(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, token := range fields {
		if e.cfg.TrimPunctuation {
			token = strings.TrimFunc(token, unicode.IsPunct)
		}
		if utf8.RuneCountInString(token) < e.cfg.MinLength {
			continue
		}
		if _, stop := e.stops[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if e.cfg.MaxKeywords > 0 && len(out) == e.cfg.MaxKeywords {
			break
		}
	}
	return out
}

func defaultStopWords() []string {
	return []string{
		// articles, conjunctions
		"a", "an", "the", "and", "or", "but", "nor", "yet", "so", "for",
		"because", "although", "though", "unless", "while", "whether",
		// auxiliaries
		"is", "are", "was", "were", "be", "been", "being", "am",
		"have", "has", "had", "having", "do", "does", "did", "doing",
		"will", "would", "shall", "should", "can", "could", "may", "might", "must",
		// fillers that survive the length cut
		"this", "that", "these", "those", "with", "from", "into", "onto", "about",
		"than", "then", "them", "they", "their", "there", "what", "which", "when",
		"where", "also", "just", "very", "over", "such", "some", "more", "most",
	}
}
