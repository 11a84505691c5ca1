package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// IntentPolicy is the per-intent answer shape contract. Different intents
// (chit-chat vs document summary) legitimately accept different shapes, so
// this check lives apart from the structural engine and does not duplicate
// its rules.
type IntentPolicy struct {
	MinLength           int     `yaml:"min_length"`
	MaxLength           int     `yaml:"max_length"`
	RequireCitations    bool    `yaml:"require_citations"`
	TruncationTolerance float64 `yaml:"truncation_tolerance"`
}

// PolicyTable maps known intents to their policy, with an explicit default
// entry for intents without a dedicated record.
type PolicyTable struct {
	Policies map[domain.Intent]IntentPolicy
	Default  IntentPolicy
}

func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		Policies: map[domain.Intent]IntentPolicy{
			domain.IntentDocumentQA: {MinLength: 40, MaxLength: 6000, RequireCitations: true, TruncationTolerance: 0.1},
			domain.IntentSummary:    {MinLength: 120, MaxLength: 8000, RequireCitations: true, TruncationTolerance: 0.15},
			domain.IntentComparison: {MinLength: 120, MaxLength: 8000, RequireCitations: true, TruncationTolerance: 0.1},
			domain.IntentNavigation: {MinLength: 10, MaxLength: 2000, RequireCitations: false, TruncationTolerance: 0.2},
			domain.IntentChitChat:   {MinLength: 1, MaxLength: 1000, RequireCitations: false, TruncationTolerance: 0.5},
		},
		Default: IntentPolicy{MinLength: 20, MaxLength: 6000, RequireCitations: true, TruncationTolerance: 0.1},
	}
}

// Lookup preserves "missing key -> default" behavior with a typed table.
func (t PolicyTable) Lookup(intent domain.Intent) IntentPolicy {
	if policy, ok := t.Policies[intent]; ok {
		return policy
	}
	return t.Default
}

// Evaluate runs the lighter policy checks against the final answer text.
func (t PolicyTable) Evaluate(answer string, answerCtx domain.AnswerContext) []domain.ValidationResult {
	policy := t.Lookup(answerCtx.Intent)
	components := ParseAnswer(answer)
	results := make([]domain.ValidationResult, 0, 3)

	citations := domain.ValidationResult{
		RuleID:   "policy_citations_required",
		Category: domain.CategoryCitations,
		Severity: domain.SeverityCritical,
		Passed:   true,
	}
	if policy.RequireCitations && len(components.Citations) == 0 {
		citations.Passed = false
		citations.Message = fmt.Sprintf("intent %s requires citations and the answer has none", answerCtx.Intent)
	}
	results = append(results, citations)

	length := domain.ValidationResult{
		RuleID:   "policy_answer_length",
		Category: domain.CategoryQuality,
		Severity: domain.SeverityFixable,
		Passed:   true,
		Fixable:  true,
	}
	switch {
	case len(answer) < policy.MinLength:
		length.Passed = false
		length.Message = fmt.Sprintf("answer length %d below intent minimum %d", len(answer), policy.MinLength)
	case policy.MaxLength > 0 && len(answer) > policy.MaxLength:
		length.Passed = false
		length.Message = fmt.Sprintf("answer length %d above intent maximum %d", len(answer), policy.MaxLength)
	}
	results = append(results, length)

	truncation := domain.ValidationResult{
		RuleID:   "policy_truncation",
		Category: domain.CategoryQuality,
		Severity: domain.SeverityWarning,
		Passed:   true,
	}
	if policy.MaxLength > 0 && looksTruncated(answer) {
		headroom := float64(policy.MaxLength-len(answer)) / float64(policy.MaxLength)
		if headroom < policy.TruncationTolerance {
			truncation.Passed = false
			truncation.Message = "answer appears truncated near the intent length ceiling"
		}
	}
	results = append(results, truncation)

	return results
}

func looksTruncated(answer string) bool {
	if answer == "" {
		return false
	}
	last := answer[len(answer)-1]
	switch last {
	case '.', '!', '?', ')', ']', '`':
		return false
	}
	return true
}

// policyFile is the optional YAML override shape, keyed by intent name.
type policyFile struct {
	Default  *IntentPolicy           `yaml:"default"`
	Policies map[string]IntentPolicy `yaml:"intents"`
}

// LoadPolicyOverrides merges a YAML policy file over the defaults. Unknown
// intent keys are rejected so typos fail loudly at startup.
func LoadPolicyOverrides(path string) (PolicyTable, error) {
	table := DefaultPolicyTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read policy file: %w", err)
	}
	var parsed policyFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return table, fmt.Errorf("parse policy file: %w", err)
	}

	if parsed.Default != nil {
		table.Default = *parsed.Default
	}
	for name, policy := range parsed.Policies {
		intent := domain.Intent(name)
		if _, known := table.Policies[intent]; !known {
			return table, fmt.Errorf("unknown intent %q in policy file", name)
		}
		table.Policies[intent] = policy
	}
	return table, nil
}
