package usecase

import (
	"testing"

	"github.com/askdocs/askdocs/internal/core/domain"
)

func TestPlanRejectsEmptyQuery(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	_, err := planner.Plan("   ", domain.Classification{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestPlanSplitsComparisonByStemSubstitution(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	plan, err := planner.Plan("Compare revenue and costs", domain.Classification{Intent: domain.IntentComparison})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.SubQuestions) != 2 {
		t.Fatalf("expected 2 sub-questions, got %d", len(plan.SubQuestions))
	}
	if plan.SubQuestions[0].Text != "Compare revenue" {
		t.Fatalf("expected first comparand kept verbatim, got %q", plan.SubQuestions[0].Text)
	}
	if plan.SubQuestions[1].Text != "Compare costs" {
		t.Fatalf("expected stem substituted for second comparand, got %q", plan.SubQuestions[1].Text)
	}
	for _, sq := range plan.SubQuestions {
		if sq.Type != domain.QuestionComparison {
			t.Fatalf("expected comparison type, got %s", sq.Type)
		}
	}
	if plan.Profile != domain.ProfileComparison {
		t.Fatalf("expected comparison profile, got %s", plan.Profile)
	}
}

func TestPlanSingleSubQuestionForUnsplittableQuery(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	plan, err := planner.Plan("What is the vacation policy?", domain.Classification{Intent: domain.IntentDocumentQA})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.SubQuestions) != 1 {
		t.Fatalf("expected 1 sub-question, got %d", len(plan.SubQuestions))
	}
	if plan.SubQuestions[0].Text != "What is the vacation policy?" {
		t.Fatalf("expected the original query kept, got %q", plan.SubQuestions[0].Text)
	}
	if len(plan.ExecutionOrder) != 1 || plan.ExecutionOrder[0] != plan.SubQuestions[0].ID {
		t.Fatalf("expected execution order over the single sub-question, got %v", plan.ExecutionOrder)
	}
}

func TestPlanAnaphoricFragmentDependsOnPredecessor(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	plan, err := planner.Plan(
		"Explain the onboarding process? What does that mean for contractors?",
		domain.Classification{Intent: domain.IntentDocumentQA},
	)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.SubQuestions) != 2 {
		t.Fatalf("expected 2 sub-questions, got %d", len(plan.SubQuestions))
	}
	second := plan.SubQuestions[1]
	if len(second.DependsOn) != 1 || second.DependsOn[0] != plan.SubQuestions[0].ID {
		t.Fatalf("expected anaphoric fragment to depend on its predecessor, got %v", second.DependsOn)
	}
	if plan.ExecutionOrder[0] != plan.SubQuestions[0].ID || plan.ExecutionOrder[1] != second.ID {
		t.Fatalf("expected dependency-respecting order, got %v", plan.ExecutionOrder)
	}
}

func TestPlanCapsSubQuestions(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	plan, err := planner.Plan(
		"What about budget planning? What about revenue growth? What about cost control? "+
			"What about hiring plans? What about market risks? What about vendor contracts? "+
			"What about office space?",
		domain.Classification{Intent: domain.IntentDocumentQA},
	)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.SubQuestions) != 6 {
		t.Fatalf("expected sub-questions capped at 6, got %d", len(plan.SubQuestions))
	}
}

func TestFragmentsMergeShortTrailingClause(t *testing.T) {
	planner := NewPlanner(DefaultPlannerConfig())
	fragments := planner.fragments("Summarize the budget and also the forecast")
	if len(fragments) != 1 {
		t.Fatalf("expected short clause merged into predecessor, got %v", fragments)
	}
}

func TestExecutionOrderRejectsUnknownDependency(t *testing.T) {
	subs := []domain.SubQuestion{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "second", DependsOn: []string{"missing"}},
	}
	_, err := executionOrder(subs)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error for unknown dependency, got %v", err)
	}
}

func TestExecutionOrderRejectsCycle(t *testing.T) {
	subs := []domain.SubQuestion{
		{ID: "a", Text: "first", DependsOn: []string{"b"}},
		{ID: "b", Text: "second", DependsOn: []string{"a"}},
	}
	_, err := executionOrder(subs)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error for dependency cycle, got %v", err)
	}
}

func TestExecutionOrderKeepsDeclarationOrderWithoutDependencies(t *testing.T) {
	subs := []domain.SubQuestion{
		{ID: "c", Text: "third declared first"},
		{ID: "a", Text: "second"},
		{ID: "b", Text: "last"},
	}
	order, err := executionOrder(subs)
	if err != nil {
		t.Fatalf("executionOrder() error = %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected declaration order %v, got %v", want, order)
		}
	}
}

func TestExecutionOrderDependentsAfterPrerequisites(t *testing.T) {
	subs := []domain.SubQuestion{
		{ID: "join", Text: "combine both", DependsOn: []string{"left", "right"}},
		{ID: "left", Text: "first branch"},
		{ID: "right", Text: "second branch"},
	}
	order, err := executionOrder(subs)
	if err != nil {
		t.Fatalf("executionOrder() error = %v", err)
	}
	if order[2] != "join" {
		t.Fatalf("expected dependent last, got %v", order)
	}
}
