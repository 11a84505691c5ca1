package validation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// Engine runs the fixed validator registry over a generated answer.
type Engine struct {
	rules []Rule
	log   *slog.Logger
}

func NewEngine(rules []Rule, log *slog.Logger) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{rules: rules, log: log}
}

// Run parses the answer once and evaluates every rule against the shared
// parse. A rule that panics is converted into a synthetic critical failure
// for that rule; the batch always completes.
func (e *Engine) Run(answer string, answerCtx domain.AnswerContext) []domain.ValidationResult {
	components := ParseAnswer(answer)

	results := make([]domain.ValidationResult, 0, len(e.rules))
	for _, rule := range e.rules {
		results = append(results, e.runOne(rule, components, answerCtx))
	}
	return results
}

func (e *Engine) runOne(rule Rule, components AnswerComponents, answerCtx domain.AnswerContext) (result domain.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("validator_crashed", "rule_id", rule.ID, "panic", fmt.Sprintf("%v", r))
			result = domain.ValidationResult{
				RuleID:   rule.ID,
				Category: rule.Category,
				Severity: domain.SeverityCritical,
				Passed:   false,
				Message:  "validator crashed and was recorded as a critical failure",
			}
		}
	}()

	outcome := rule.Check(components, answerCtx)
	return domain.ValidationResult{
		RuleID:   rule.ID,
		Category: rule.Category,
		Severity: rule.Severity,
		Passed:   outcome.Passed,
		Message:  outcome.Message,
		Fixable:  outcome.Fixable || rule.Severity == domain.SeverityFixable,
	}
}

// BuildReport aggregates rule verdicts into a quality score and a
// recommended action. The score drops with every failing critical or
// fixable rule and never goes negative.
func BuildReport(results []domain.ValidationResult) domain.ValidationReport {
	report := domain.ValidationReport{}
	passed := 0
	for _, result := range results {
		if result.Passed {
			passed++
			continue
		}
		switch result.Severity {
		case domain.SeverityCritical:
			report.Errors = append(report.Errors, result)
		case domain.SeverityFixable:
			report.Fixable = append(report.Fixable, result)
		default:
			report.Warnings = append(report.Warnings, result)
		}
	}

	if len(results) > 0 {
		report.QualityScore = int(math.Round(100 * float64(passed) / float64(len(results))))
	} else {
		report.QualityScore = 100
	}
	if report.QualityScore < 0 {
		report.QualityScore = 0
	}

	switch {
	case len(report.Errors) > 0:
		report.RecommendedAction = domain.ActionRegenerate
	case len(report.Fixable) > 0:
		report.RecommendedAction = domain.ActionReformat
	default:
		report.RecommendedAction = domain.ActionPass
	}
	return report
}
