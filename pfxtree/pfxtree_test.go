package pfxtree

import "testing"

func TestBudgetDefault(t *testing.T) {
	if Budget(0) != defaultTopLogprobs {
		t.Fatalf("Budget(0) = %d, want %d", Budget(0), defaultTopLogprobs)
	}
	if Budget(1) != defaultTopLogprobs {
		t.Fatalf("Budget(1) = %d, want %d", Budget(1), defaultTopLogprobs)
	}
	if Budget(50) != 50 {
		t.Fatalf("Budget(50) = %d, want 50", Budget(50))
	}
}

func TestGenerateDistinctKeys(t *testing.T) {
	tree, err := Generate(5, 20, 42)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(tree.Keys) != 5 {
		t.Fatalf("got %d keys, want 5", len(tree.Keys))
	}
	seen := map[string]bool{}
	for _, k := range tree.Keys {
		if seen[k] {
			t.Fatalf("duplicate key %q", k)
		}
		seen[k] = true
	}
}

func TestGenerateExceedsBudget(t *testing.T) {
	if _, err := Generate(25, 20, 1); err == nil {
		t.Fatalf("expected error when n exceeds budget")
	}
}

func TestExtractVoteFromTopLogprobs(t *testing.T) {
	tree, err := Generate(2, 20, 7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	positions := []ChoicePosition{
		{TopLogprobs: []TopLogprob{{Token: tree.Keys[0], Logprob: 0}}},
	}
	vote, ok := tree.ExtractVote("irrelevant", positions)
	if !ok {
		t.Fatalf("expected a vote")
	}
	if len(vote) != 2 {
		t.Fatalf("got %d-length vote, want 2", len(vote))
	}
	if vote[0] <= vote[1] {
		t.Fatalf("expected vote[0] to dominate: %v", vote)
	}
}

func TestExtractVoteFallbackToText(t *testing.T) {
	tree, err := Generate(2, 20, 9)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	text := `the answer is "` + tree.Keys[1] + `"`
	vote, ok := tree.ExtractVote(text, nil)
	if !ok {
		t.Fatalf("expected fallback text match")
	}
	if vote[1] != 1 {
		t.Fatalf("expected hard match vote[1]=1, got %v", vote)
	}
}

func TestExtractVoteNoMatch(t *testing.T) {
	tree, err := Generate(2, 20, 11)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	_, ok := tree.ExtractVote("0123456789 !@#$%^&*()", nil)
	if ok {
		t.Fatalf("expected no match")
	}
}
