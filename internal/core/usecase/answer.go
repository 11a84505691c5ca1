package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs/internal/core/domain"
	"github.com/askdocs/askdocs/internal/core/ports"
	"github.com/askdocs/askdocs/internal/core/validation"
)

// PipelineObserver receives pipeline-stage outcomes for metrics export.
type PipelineObserver interface {
	QueryClassified(complexity domain.QueryComplexity, intent domain.Intent)
	PlanBuilt(subQuestions int)
	ChunksAggregated(total, duplicatesRemoved int)
	AnswerValidated(action domain.RecommendedAction, qualityScore int)
}

type noopObserver struct{}

func (noopObserver) QueryClassified(domain.QueryComplexity, domain.Intent) {}
func (noopObserver) PlanBuilt(int)                                         {}
func (noopObserver) ChunksAggregated(int, int)                             {}
func (noopObserver) AnswerValidated(domain.RecommendedAction, int)         {}

// AnswerConfig tunes generation and post-validation behavior.
type AnswerConfig struct {
	MaxSources         int
	MaxContextChunks   int
	Temperature        float64
	MaxTokens          int
	RegenerateAttempts int
}

func DefaultAnswerConfig() AnswerConfig {
	return AnswerConfig{
		MaxSources:         5,
		MaxContextChunks:   8,
		Temperature:        0.2,
		MaxTokens:          1536,
		RegenerateAttempts: 1,
	}
}

// AnswerUseCase runs the whole pipeline: classify, plan, retrieve,
// generate, validate.
type AnswerUseCase struct {
	classifier  *QueryClassifier
	planner     *Planner
	coordinator *Coordinator
	generator   ports.AnswerGenerator
	docs        ports.DocumentStore
	engine      *validation.Engine
	policies    validation.PolicyTable
	audit       ports.AuditQueue
	observer    PipelineObserver
	log         *slog.Logger
	cfg         AnswerConfig
}

func NewAnswerUseCase(
	classifier *QueryClassifier,
	planner *Planner,
	coordinator *Coordinator,
	generator ports.AnswerGenerator,
	docs ports.DocumentStore,
	engine *validation.Engine,
	policies validation.PolicyTable,
	audit ports.AuditQueue,
	observer PipelineObserver,
	log *slog.Logger,
	cfg AnswerConfig,
) *AnswerUseCase {
	def := DefaultAnswerConfig()
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = def.MaxSources
	}
	if cfg.MaxContextChunks <= 0 {
		cfg.MaxContextChunks = def.MaxContextChunks
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if observer == nil {
		observer = noopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnswerUseCase{
		classifier:  classifier,
		planner:     planner,
		coordinator: coordinator,
		generator:   generator,
		docs:        docs,
		engine:      engine,
		policies:    policies,
		audit:       audit,
		observer:    observer,
		log:         log,
		cfg:         cfg,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	return uc.answer(ctx, req, nil)
}

// AnswerStream delivers generation chunks as produced. Validation always
// runs on the final complete text; if validation forces a regeneration the
// replacement answer arrives only in the returned response, and the caller
// replaces the streamed text with it.
func (uc *AnswerUseCase) AnswerStream(ctx context.Context, req domain.QueryRequest, deliver func(chunk string) error) (*domain.QueryResponse, error) {
	if deliver == nil {
		return uc.answer(ctx, req, nil)
	}
	return uc.answer(ctx, req, deliver)
}

func (uc *AnswerUseCase) answer(ctx context.Context, req domain.QueryRequest, deliver func(chunk string) error) (*domain.QueryResponse, error) {
	queryText := strings.TrimSpace(req.Query)
	if queryText == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", fmt.Errorf("query is required"))
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", fmt.Errorf("user_id is required"))
	}

	latencies := make(map[string]int64, 5)
	stageStart := time.Now()

	cls := uc.classifier.Classify(queryText)
	latencies["classify_ms"] = sinceMS(stageStart)
	uc.observer.QueryClassified(cls.Complexity, cls.Intent)

	stageStart = time.Now()
	plan, err := uc.buildPlan(queryText, cls)
	if err != nil {
		return nil, err
	}
	latencies["plan_ms"] = sinceMS(stageStart)
	uc.observer.PlanBuilt(len(plan.SubQuestions))

	available, err := uc.docs.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "list documents", err)
	}
	if len(available) == 0 {
		return nil, domain.WrapError(domain.ErrNoDocuments, "answer query", fmt.Errorf("user %s has no documents", userID))
	}

	query := domain.Query{
		Text:        queryText,
		Language:    cls.Language,
		UserID:      userID,
		DocumentIDs: req.DocumentIDs,
	}

	stageStart = time.Now()
	tagged := uc.coordinator.Retrieve(ctx, query, plan)
	aggregated := AggregateChunks(tagged)
	latencies["retrieve_ms"] = sinceMS(stageStart)
	uc.observer.ChunksAggregated(len(aggregated.Chunks), aggregated.DuplicatesRemoved)

	if len(aggregated.Chunks) == 0 {
		return nil, domain.WrapError(domain.ErrNoRelevantDocuments, "answer query",
			fmt.Errorf("no chunks survived retrieval for %d sub-questions", len(plan.SubQuestions)))
	}

	contextChunks := aggregated.Chunks
	if len(contextChunks) > uc.cfg.MaxContextChunks {
		contextChunks = contextChunks[:uc.cfg.MaxContextChunks]
	}
	sources := uc.buildSources(contextChunks)

	systemPrompt := buildSystemPrompt(plan.Profile, plan.Language)
	userPrompt := buildUserPrompt(queryText, sources, contextChunks)
	opts := ports.GenerateOptions{Temperature: uc.cfg.Temperature, MaxTokens: uc.cfg.MaxTokens}

	stageStart = time.Now()
	var answerText string
	if deliver != nil {
		answerText, err = uc.generator.GenerateStream(ctx, systemPrompt, userPrompt, opts, deliver)
	} else {
		answerText, err = uc.generator.Generate(ctx, systemPrompt, userPrompt, opts)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFailed, "generate answer", err)
	}
	latencies["generate_ms"] = sinceMS(stageStart)

	answerCtx := domain.AnswerContext{
		Query:       queryText,
		Intent:      cls.Intent,
		Profile:     plan.Profile,
		DocumentIDs: sourceDocumentIDs(sources),
		Titles:      sourceTitles(sources),
		Chunks:      contextChunks,
	}

	stageStart = time.Now()
	report := uc.validate(answerText, answerCtx)
	action := report.RecommendedAction

	if action == domain.ActionRegenerate {
		if uc.cfg.RegenerateAttempts > 0 {
			regenerated, regenErr := uc.generator.Generate(ctx, systemPrompt,
				buildRegeneratePrompt(queryText, sources, contextChunks, report), opts)
			if regenErr == nil {
				retried := uc.validate(regenerated, answerCtx)
				if !retried.HasCritical() {
					answerText = regenerated
					report = retried
					action = retried.RecommendedAction
				} else {
					answerText = fallbackAnswer(sources)
					report = retried
					action = domain.ActionFallback
				}
			} else {
				answerText = fallbackAnswer(sources)
				action = domain.ActionFallback
			}
		} else {
			// Regeneration not attempted: degrade to the grounded fallback.
			answerText = fallbackAnswer(sources)
			action = domain.ActionFallback
		}
	}
	latencies["validate_ms"] = sinceMS(stageStart)
	uc.observer.AnswerValidated(action, report.QualityScore)
	uc.publishAudit(ctx, userID, cls.Intent, report, action)

	return &domain.QueryResponse{
		Answer:  answerText,
		Sources: sources,
		Metadata: domain.AnswerMetadata{
			SubQuestionsCount: len(plan.SubQuestions),
			ChunksRetrieved:   len(aggregated.Chunks),
			UniqueDocuments:   UniqueDocumentCount(aggregated.Chunks),
			DuplicatesRemoved: aggregated.DuplicatesRemoved,
			QualityScore:      report.QualityScore,
			Action:            string(action),
			LatenciesMS:       latencies,
		},
	}, nil
}

// buildPlan decomposes complex queries; simple and unknown classifications
// get a single-sub-question plan equal to the original query.
func (uc *AnswerUseCase) buildPlan(queryText string, cls domain.Classification) (*domain.QueryPlan, error) {
	if cls.Complexity == domain.ComplexityComplex {
		return uc.planner.Plan(queryText, cls)
	}
	sq := newSubQuestion(queryText, questionTypeOf(queryText), nil)
	return &domain.QueryPlan{
		SubQuestions:   []domain.SubQuestion{sq},
		ExecutionOrder: []string{sq.ID},
		Profile:        domain.ProfileDeepAnalysis,
		Language:       cls.Language,
	}, nil
}

func (uc *AnswerUseCase) validate(answer string, answerCtx domain.AnswerContext) domain.ValidationReport {
	results := uc.engine.Run(answer, answerCtx)
	results = append(results, uc.policies.Evaluate(answer, answerCtx)...)
	return validation.BuildReport(results)
}

// buildSources keeps one entry per document, ordered by first (strongest)
// appearance, capped at MaxSources.
func (uc *AnswerUseCase) buildSources(chunks []domain.TaggedChunk) []domain.Source {
	seen := make(map[string]int, len(chunks))
	sources := make([]domain.Source, 0, uc.cfg.MaxSources)
	for _, chunk := range chunks {
		if idx, ok := seen[chunk.DocumentID]; ok {
			if len(sources[idx].Content) < 600 {
				sources[idx].Content += "\n" + chunk.Text
			}
			continue
		}
		if len(sources) >= uc.cfg.MaxSources {
			continue
		}
		seen[chunk.DocumentID] = len(sources)
		sources = append(sources, domain.Source{
			DocumentID:    chunk.DocumentID,
			DocumentTitle: chunk.DocumentTitle,
			Content:       chunk.Text,
		})
	}
	return sources
}

func (uc *AnswerUseCase) publishAudit(ctx context.Context, userID string, intent domain.Intent, report domain.ValidationReport, action domain.RecommendedAction) {
	if uc.audit == nil {
		return
	}
	failures := make([]string, 0, len(report.Errors)+len(report.Fixable))
	for _, r := range report.Errors {
		failures = append(failures, r.RuleID)
	}
	for _, r := range report.Fixable {
		failures = append(failures, r.RuleID)
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	event := ports.AuditEvent{
		RequestID:    uuid.NewString(),
		UserID:       userID,
		Intent:       intent,
		QualityScore: report.QualityScore,
		Action:       action,
		RuleFailures: failures,
	}
	if err := uc.audit.PublishAudit(publishCtx, event); err != nil {
		uc.log.Warn("audit_publish_failed", "error", err)
	}
}

func sourceDocumentIDs(sources []domain.Source) []string {
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = src.DocumentID
	}
	return out
}

func sourceTitles(sources []domain.Source) []string {
	out := make([]string, len(sources))
	for i, src := range sources {
		out[i] = src.DocumentTitle
	}
	return out
}

func sinceMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
