package conversation

import "testing"

func TestKnowledgeBase_RetrieveRanksByOverlap(t *testing.T) {
	kb := NewKnowledgeBase([]QAEntry{
		{Question: "What is your name?", Answer: "I am Umebot."},
		{Question: "What time is it?", Answer: "I cannot tell time."},
		{Question: "Completely unrelated question about gardening", Answer: "n/a"},
	})

	got := kb.Retrieve("what is your name please", 2)
	if len(got) == 0 {
		t.Fatal("expected at least one retrieved answer")
	}
	if got[0] != "I am Umebot." {
		t.Errorf("expected the best-overlap answer first, got %q", got[0])
	}
}

func TestKnowledgeBase_RetrieveEmptyOnNoOverlap(t *testing.T) {
	kb := NewKnowledgeBase([]QAEntry{{Question: "zzz yyy xxx", Answer: "a"}})
	if got := kb.Retrieve("completely different words here", 5); got != nil {
		t.Errorf("expected nil for zero overlap, got %v", got)
	}
}

func TestKnowledgeBase_NilAndEmptyInputsAreSafe(t *testing.T) {
	var kb *KnowledgeBase
	if got := kb.Retrieve("anything", 3); got != nil {
		t.Errorf("expected nil from a nil KnowledgeBase, got %v", got)
	}

	kb2 := NewKnowledgeBase(nil)
	if got := kb2.Retrieve("anything", 3); got != nil {
		t.Errorf("expected nil from an empty KnowledgeBase, got %v", got)
	}
	if got := kb2.Retrieve("", 3); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestLoadKnowledgeBaseFile_EmptyPath(t *testing.T) {
	kb, err := LoadKnowledgeBaseFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := kb.Retrieve("anything", 3); got != nil {
		t.Errorf("expected nil retrieval from an empty-path knowledge base, got %v", got)
	}
}
