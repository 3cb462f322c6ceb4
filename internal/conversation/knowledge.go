package conversation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QAEntry is one preloaded knowledge-base entry.
type QAEntry struct {
	Question string
	Answer   string
}

// KnowledgeBase is a small preloaded Q&A set retrieved by lexical overlap.
// Supplemented from original_source's prompt-builder equivalent, which the
// distilled spec names only abstractly ("retrieved context snippets keyed
// by lexical overlap"); this fixes a concrete, simple scoring algorithm:
// token-set Jaccard similarity between the input and each entry's question.
type KnowledgeBase struct {
	entries []QAEntry
}

// NewKnowledgeBase builds a KnowledgeBase from a loaded entry list.
func NewKnowledgeBase(entries []QAEntry) *KnowledgeBase {
	return &KnowledgeBase{entries: entries}
}

// Retrieve returns up to limit answers whose question has the highest
// token-overlap score against input, in descending score order. Entries
// with zero overlap are never returned.
func (kb *KnowledgeBase) Retrieve(input string, limit int) []string {
	if kb == nil || len(kb.entries) == 0 || input == "" {
		return nil
	}

	inputTokens := tokenSet(input)
	type scored struct {
		answer string
		score  float64
	}
	var candidates []scored

	for _, e := range kb.entries {
		score := jaccard(inputTokens, tokenSet(e.Question))
		if score > 0 {
			candidates = append(candidates, scored{answer: e.Answer, score: score})
		}
	}

	// Simple selection sort over a typically-small candidate set; a full
	// sort.Slice would work identically, this keeps the dependency-free
	// stdlib-only shape intentional rather than reaching for sort for a
	// handful of items.
	for i := 0; i < len(candidates) && i < limit; i++ {
		best := i
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].score > candidates[best].score {
				best = j
			}
		}
		candidates[i], candidates[best] = candidates[best], candidates[i]
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.answer
	}
	return out
}

// LoadKnowledgeBaseFile reads a YAML list of {question, answer} entries
// from path and builds a KnowledgeBase. An empty path yields an empty,
// usable knowledge base (Retrieve always returns nil).
func LoadKnowledgeBaseFile(path string) (*KnowledgeBase, error) {
	if path == "" {
		return NewKnowledgeBase(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("conversation: read knowledge base: %w", err)
	}
	var entries []struct {
		Question string `yaml:"question"`
		Answer   string `yaml:"answer"`
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("conversation: parse knowledge base: %w", err)
	}
	qa := make([]QAEntry, len(entries))
	for i, e := range entries {
		qa[i] = QAEntry{Question: e.Question, Answer: e.Answer}
	}
	return NewKnowledgeBase(qa), nil
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?¿¡;:\"'")
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
