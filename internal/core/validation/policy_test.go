package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askdocs/askdocs/internal/core/domain"
)

func TestPolicyTableLookupFallsBackToDefault(t *testing.T) {
	table := DefaultPolicyTable()
	if policy := table.Lookup(domain.IntentChitChat); policy.MinLength != 1 {
		t.Fatalf("expected chit_chat policy, got %+v", policy)
	}
	if policy := table.Lookup(domain.IntentUnknown); policy != table.Default {
		t.Fatalf("expected default policy for unknown intent, got %+v", policy)
	}
}

func TestEvaluateRequiresCitationsForDocumentQA(t *testing.T) {
	table := DefaultPolicyTable()
	answerCtx := domain.AnswerContext{Intent: domain.IntentDocumentQA}

	results := table.Evaluate("The vacation policy grants twenty five days per year to all staff.", answerCtx)
	citations := resultByID(t, results, "policy_citations_required")
	if citations.Passed {
		t.Fatalf("expected missing citations to fail for document_qa")
	}

	results = table.Evaluate("The vacation policy grants twenty five days per year to all staff [1].", answerCtx)
	if citations = resultByID(t, results, "policy_citations_required"); !citations.Passed {
		t.Fatalf("expected present citations to pass, got %q", citations.Message)
	}
}

func TestEvaluateAnswerLengthBounds(t *testing.T) {
	table := DefaultPolicyTable()
	answerCtx := domain.AnswerContext{Intent: domain.IntentSummary}

	results := table.Evaluate("Too short [1].", answerCtx)
	length := resultByID(t, results, "policy_answer_length")
	if length.Passed {
		t.Fatalf("expected below-minimum answer to fail")
	}
	if length.Severity != domain.SeverityFixable || !length.Fixable {
		t.Fatalf("expected length failure to be fixable, got %+v", length)
	}
}

func TestEvaluateFlagsTruncationNearCeiling(t *testing.T) {
	table := DefaultPolicyTable()
	answerCtx := domain.AnswerContext{Intent: domain.IntentChitChat}

	// Near the 1000-character ceiling with no terminal punctuation.
	answer := strings.Repeat("words and more words ", 43) + "and then"
	results := table.Evaluate(answer, answerCtx)
	truncation := resultByID(t, results, "policy_truncation")
	if truncation.Passed {
		t.Fatalf("expected near-ceiling unterminated answer to look truncated")
	}

	results = table.Evaluate("A short complete reply.", answerCtx)
	if truncation = resultByID(t, results, "policy_truncation"); !truncation.Passed {
		t.Fatalf("expected terminated answer to pass, got %q", truncation.Message)
	}
}

func TestLoadPolicyOverridesMergesKnownIntent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	content := "default:\n  min_length: 5\n  max_length: 500\nintents:\n  document_qa:\n    min_length: 10\n    max_length: 3000\n    require_citations: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	table, err := LoadPolicyOverrides(path)
	if err != nil {
		t.Fatalf("LoadPolicyOverrides() error = %v", err)
	}
	policy := table.Lookup(domain.IntentDocumentQA)
	if policy.MinLength != 10 || policy.MaxLength != 3000 || policy.RequireCitations {
		t.Fatalf("expected overridden document_qa policy, got %+v", policy)
	}
	if table.Default.MinLength != 5 {
		t.Fatalf("expected overridden default, got %+v", table.Default)
	}
	// Untouched intents keep their defaults.
	if table.Lookup(domain.IntentSummary).MinLength != 120 {
		t.Fatalf("expected summary policy untouched, got %+v", table.Lookup(domain.IntentSummary))
	}
}

func TestLoadPolicyOverridesRejectsUnknownIntent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte("intents:\n  made_up:\n    min_length: 1\n"), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	if _, err := LoadPolicyOverrides(path); err == nil {
		t.Fatalf("expected unknown intent key to be rejected")
	}
}

func TestLoadPolicyOverridesEmptyPathKeepsDefaults(t *testing.T) {
	table, err := LoadPolicyOverrides("")
	if err != nil {
		t.Fatalf("LoadPolicyOverrides() error = %v", err)
	}
	if table.Lookup(domain.IntentDocumentQA).MinLength != 40 {
		t.Fatalf("expected defaults without a file, got %+v", table.Lookup(domain.IntentDocumentQA))
	}
}

func resultByID(t *testing.T, results []domain.ValidationResult, id string) domain.ValidationResult {
	t.Helper()
	for _, result := range results {
		if result.RuleID == id {
			return result
		}
	}
	t.Fatalf("result %s not found in %+v", id, results)
	return domain.ValidationResult{}
}
