package usecase

import (
	"sort"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// AggregateResult is the merged, deduplicated chunk set for a whole plan.
type AggregateResult struct {
	Chunks            []domain.TaggedChunk
	DuplicatesRemoved int
}

// AggregateChunks deduplicates chunks retrieved by multiple sub-questions,
// keeping the occurrence with the higher final score, then re-sorts
// globally. Idempotent: aggregating its own output changes nothing.
func AggregateChunks(chunks []domain.TaggedChunk) AggregateResult {
	best := make(map[string]domain.TaggedChunk, len(chunks))
	removed := 0
	for _, chunk := range chunks {
		key := chunkKey(chunk.RetrievedChunk)
		current, ok := best[key]
		if !ok {
			best[key] = chunk
			continue
		}
		removed++
		if chunk.FinalScore > current.FinalScore {
			best[key] = chunk
		}
	}

	out := make([]domain.TaggedChunk, 0, len(best))
	for _, chunk := range best {
		out = append(out, chunk)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	return AggregateResult{Chunks: out, DuplicatesRemoved: removed}
}

// UniqueDocumentCount reports how many distinct documents contributed.
func UniqueDocumentCount(chunks []domain.TaggedChunk) int {
	seen := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		seen[chunk.DocumentID] = struct{}{}
	}
	return len(seen)
}
