package usecase

import (
	"math"
	"testing"

	"github.com/askdocs/askdocs/internal/core/domain"
)

func TestSelectFusionWeightsEntityForCellReference(t *testing.T) {
	class, weights := SelectFusionWeights("What is in cell B25?")
	if class != domain.SignalEntity {
		t.Fatalf("expected entity class, got %s", class)
	}
	want := domain.FusionWeights{Lexical: 2.0, Vector: 0.5, Title: 1.0}
	if weights != want {
		t.Fatalf("expected entity weights %+v, got %+v", want, weights)
	}
}

func TestSelectFusionWeightsNavigational(t *testing.T) {
	class, weights := SelectFusionWeights("Where is the budget file?")
	if class != domain.SignalNavigational {
		t.Fatalf("expected navigational class, got %s", class)
	}
	want := domain.FusionWeights{Lexical: 1.0, Vector: 0.5, Title: 2.5}
	if weights != want {
		t.Fatalf("expected navigational weights %+v, got %+v", want, weights)
	}
}

func TestSelectFusionWeightsSemantic(t *testing.T) {
	class, weights := SelectFusionWeights("Summarize the quarterly risks")
	if class != domain.SignalSemantic {
		t.Fatalf("expected semantic class, got %s", class)
	}
	want := domain.FusionWeights{Lexical: 0.5, Vector: 2.0, Title: 1.0}
	if weights != want {
		t.Fatalf("expected semantic weights %+v, got %+v", want, weights)
	}
}

func TestSelectFusionWeightsHybridDefault(t *testing.T) {
	class, weights := SelectFusionWeights("budget forecast figures")
	if class != domain.SignalHybrid {
		t.Fatalf("expected hybrid class, got %s", class)
	}
	want := domain.FusionWeights{Lexical: 1.0, Vector: 1.0, Title: 1.5}
	if weights != want {
		t.Fatalf("expected hybrid weights %+v, got %+v", want, weights)
	}
}

func TestSelectFusionWeightsEntityTakesPriorityOverSemantic(t *testing.T) {
	// Both an entity keyword and a semantic keyword match; the cascade
	// resolves in priority order.
	class, _ := SelectFusionWeights("Explain the value in cell C10")
	if class != domain.SignalEntity {
		t.Fatalf("expected entity class to win the cascade, got %s", class)
	}
}

func TestFuseWeightedRRFDeduplicatesByChunkKey(t *testing.T) {
	a := domain.RetrievedChunk{ChunkID: "a", DocumentID: "doc-1", Text: "alpha"}
	b := domain.RetrievedChunk{ChunkID: "b", DocumentID: "doc-2", Text: "beta"}

	fused := fuseWeightedRRF(
		[]domain.RetrievedChunk{a, b},
		[]domain.RetrievedChunk{a},
		nil,
		domain.FusionWeights{Lexical: 1.0, Vector: 1.0},
		60,
	)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "a" {
		t.Fatalf("expected chunk a first, got %s", fused[0].ChunkID)
	}
	want := 1.0/61.0 + 1.0/61.0
	if math.Abs(fused[0].Score-want) > 1e-9 {
		t.Fatalf("expected fused score %f, got %f", want, fused[0].Score)
	}
}

func TestFuseWeightedRRFTieBreakStable(t *testing.T) {
	x := domain.RetrievedChunk{ChunkID: "x", DocumentID: "doc-2", Text: "two"}
	y := domain.RetrievedChunk{ChunkID: "y", DocumentID: "doc-1", Text: "one"}

	// Equal reciprocal-rank scores; ordering falls back to document id.
	fused := fuseWeightedRRF(
		[]domain.RetrievedChunk{x},
		[]domain.RetrievedChunk{y},
		nil,
		domain.FusionWeights{Lexical: 1.0, Vector: 1.0},
		60,
	)
	if len(fused) != 2 {
		t.Fatalf("expected 2 fused candidates, got %d", len(fused))
	}
	if fused[0].ChunkID != "y" || fused[1].ChunkID != "x" {
		t.Fatalf("expected deterministic doc-id tie-break, got %s then %s", fused[0].ChunkID, fused[1].ChunkID)
	}
}

func TestFuseWeightedRRFZeroWeightDropsSignal(t *testing.T) {
	only := domain.RetrievedChunk{ChunkID: "t", DocumentID: "doc-1", Text: "title only"}
	fused := fuseWeightedRRF(nil, nil, []domain.RetrievedChunk{only}, domain.FusionWeights{Lexical: 1.0, Vector: 1.0, Title: 0}, 60)
	if len(fused) != 0 {
		t.Fatalf("expected no candidates from a zero-weight signal, got %d", len(fused))
	}
}

func TestFuseWeightedRRFMergesRicherMetadata(t *testing.T) {
	bare := domain.RetrievedChunk{ChunkID: "a", DocumentID: "doc-1", Text: "alpha"}
	rich := domain.RetrievedChunk{ChunkID: "a", DocumentID: "doc-1", Text: "alpha", DocumentTitle: "Budget Report", Location: "page 3"}

	fused := fuseWeightedRRF([]domain.RetrievedChunk{bare}, []domain.RetrievedChunk{rich}, nil, domain.FusionWeights{Lexical: 1.0, Vector: 1.0}, 60)
	if len(fused) != 1 {
		t.Fatalf("expected 1 fused candidate, got %d", len(fused))
	}
	if fused[0].DocumentTitle != "Budget Report" || fused[0].Location != "page 3" {
		t.Fatalf("expected merged metadata, got %+v", fused[0])
	}
}

func TestRankByTitleMatchOrdersByOverlap(t *testing.T) {
	candidates := []domain.RetrievedChunk{
		{ChunkID: "partial", DocumentID: "doc-2", DocumentTitle: "Budget Overview", Text: "b"},
		{ChunkID: "exact", DocumentID: "doc-1", DocumentTitle: "Budget Report 2024", Text: "a"},
		{ChunkID: "none", DocumentID: "doc-3", DocumentTitle: "Meeting Notes", Text: "c"},
		{ChunkID: "exact", DocumentID: "doc-1", DocumentTitle: "Budget Report 2024", Text: "a"},
	}

	ranked := rankByTitleMatch("budget report", candidates)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 title matches, got %d", len(ranked))
	}
	if ranked[0].ChunkID != "exact" {
		t.Fatalf("expected strongest title overlap first, got %s", ranked[0].ChunkID)
	}
	if ranked[1].ChunkID != "partial" {
		t.Fatalf("expected partial overlap second, got %s", ranked[1].ChunkID)
	}
}
