package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/askdocs/askdocs/internal/core/domain"
	"github.com/askdocs/askdocs/internal/core/ports"
)

// RetrievalConfig tunes plan-driven retrieval.
type RetrievalConfig struct {
	TopK            int
	CandidateLimit  int
	ScoreFloor      float64
	RouteConfidence float64
	RRFK            int
	MaxConcurrency  int
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:            5,
		CandidateLimit:  30,
		ScoreFloor:      0.001,
		RouteConfidence: 0.6,
		RRFK:            defaultRRFK,
		MaxConcurrency:  4,
	}
}

// Coordinator runs retrieval for every sub-question of a plan and tags the
// surviving chunks with their originating sub-question.
type Coordinator struct {
	embedder ports.Embedder
	vectors  ports.VectorStore
	docs     ports.DocumentStore
	reranker *SelectiveReranker
	cfg      RetrievalConfig
	log      *slog.Logger
}

func NewCoordinator(
	embedder ports.Embedder,
	vectors ports.VectorStore,
	docs ports.DocumentStore,
	reranker *SelectiveReranker,
	cfg RetrievalConfig,
	log *slog.Logger,
) *Coordinator {
	def := DefaultRetrievalConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = def.CandidateLimit
	}
	if cfg.RouteConfidence <= 0 {
		cfg.RouteConfidence = def.RouteConfidence
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = def.RRFK
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = def.MaxConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		embedder: embedder,
		vectors:  vectors,
		docs:     docs,
		reranker: reranker,
		cfg:      cfg,
		log:      log,
	}
}

// Retrieve executes the plan's sub-questions grouped into dependency
// levels: each level runs concurrently, levels run in order, and the merge
// only depends on per-chunk scores, so execution order cannot change the
// result. A failed sub-question degrades to an empty chunk set instead of
// aborting the plan.
func (c *Coordinator) Retrieve(ctx context.Context, query domain.Query, plan *domain.QueryPlan) []domain.TaggedChunk {
	results := make([][]domain.TaggedChunk, len(plan.SubQuestions))
	position := make(map[string]int, len(plan.SubQuestions))
	for i, sq := range plan.SubQuestions {
		position[sq.ID] = i
	}

	for _, level := range dependencyLevels(plan) {
		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(c.cfg.MaxConcurrency)
		for _, id := range level {
			sq, ok := plan.SubQuestionByID(id)
			if !ok {
				continue
			}
			slot := position[id]
			group.Go(func() error {
				chunks, err := c.retrieveOne(groupCtx, query, sq)
				if err != nil {
					c.log.Warn("sub_question_retrieval_degraded",
						"sub_question_id", sq.ID,
						"error", err,
					)
					return nil
				}
				results[slot] = chunks
				return nil
			})
		}
		// Errors degrade per sub-question; Wait only observes cancellation.
		if err := group.Wait(); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	var out []domain.TaggedChunk
	for _, chunks := range results {
		out = append(out, chunks...)
	}
	return out
}

func (c *Coordinator) retrieveOne(ctx context.Context, query domain.Query, sq domain.SubQuestion) ([]domain.TaggedChunk, error) {
	filter := domain.SearchFilter{
		UserID:      query.UserID,
		DocumentIDs: query.DocumentIDs,
	}
	if len(query.DocumentIDs) == 0 {
		if docID := c.routeDocument(ctx, query.UserID, sq.Text); docID != "" {
			filter.DocumentID = docID
		}
	}

	var dense []domain.RetrievedChunk
	queryVector, err := c.embedder.EmbedQuery(ctx, sq.Text)
	if err != nil {
		// Embedding outage degrades to lexical-only retrieval.
		c.log.Warn("embed_failed_falling_back_to_lexical", "sub_question_id", sq.ID, "error", err)
	} else {
		dense, err = c.vectors.Search(ctx, queryVector, c.cfg.CandidateLimit, filter)
		if err != nil {
			c.log.Warn("dense_search_failed", "sub_question_id", sq.ID, "error", err)
			dense = nil
		}
	}

	lexical, lexErr := c.vectors.SearchLexical(ctx, sq.Text, c.cfg.CandidateLimit, filter)
	if lexErr != nil && len(dense) == 0 {
		return nil, domain.WrapError(domain.ErrRetrievalFailed, "retrieve sub-question",
			fmt.Errorf("dense and lexical retrieval both unavailable: %w", lexErr))
	}

	union := make([]domain.RetrievedChunk, 0, len(dense)+len(lexical))
	union = append(union, dense...)
	union = append(union, lexical...)
	title := rankByTitleMatch(sq.Text, union)

	_, weights := SelectFusionWeights(sq.Text)
	fused := fuseWeightedRRF(dense, lexical, title, weights, c.cfg.RRFK)
	fused = boostByMetadata(sq.Text, fused)

	if c.reranker != nil {
		fused, _ = c.reranker.Apply(ctx, RerankClassFor(sq.Type), sq.Text, fused)
	}

	tagged := make([]domain.TaggedChunk, 0, c.cfg.TopK)
	for _, chunk := range fused {
		if chunk.Score < c.cfg.ScoreFloor {
			continue
		}
		tagged = append(tagged, domain.TaggedChunk{
			RetrievedChunk:      chunk,
			SourceSubQuestionID: sq.ID,
			FinalScore:          chunk.Score,
		})
		if len(tagged) >= c.cfg.TopK {
			break
		}
	}
	return tagged, nil
}

// routeDocument scopes retrieval to a single document when its title
// matches the sub-question with enough confidence. Below the gate the
// search stays unscoped; lookup failures never block retrieval.
func (c *Coordinator) routeDocument(ctx context.Context, userID, question string) string {
	docs, err := c.docs.ListByUser(ctx, userID)
	if err != nil || len(docs) == 0 {
		return ""
	}

	queryTokens := toTokenSet(question)
	bestID, bestOverlap := "", 0.0
	for _, doc := range docs {
		overlap := tokenOverlap(toTokenSet(doc.DisplayTitle()), queryTokens)
		if overlap > bestOverlap {
			bestID, bestOverlap = doc.ID, overlap
		}
	}
	if bestOverlap < c.cfg.RouteConfidence {
		return ""
	}
	return bestID
}

// dependencyLevels groups sub-question ids by dependency depth while
// preserving executionOrder within each level.
func dependencyLevels(plan *domain.QueryPlan) [][]string {
	depth := make(map[string]int, len(plan.SubQuestions))
	var levels [][]string
	for _, id := range plan.ExecutionOrder {
		sq, ok := plan.SubQuestionByID(id)
		if !ok {
			continue
		}
		d := 0
		for _, dep := range sq.DependsOn {
			if depDepth, ok := depth[dep]; ok && depDepth+1 > d {
				d = depDepth + 1
			}
		}
		depth[id] = d
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}
	return levels
}
