package config

import "testing"

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("RETRIEVAL_CANDIDATES", "")
	t.Setenv("RETRIEVAL_RRF_K", "")
	t.Setenv("RETRIEVAL_SCORE_FLOOR", "")
	t.Setenv("RERANK_ENABLED", "")
	t.Setenv("REGENERATE_ATTEMPTS", "")

	cfg := Load()
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.RetrievalCandidates != 30 {
		t.Fatalf("expected default candidates 30, got %d", cfg.RetrievalCandidates)
	}
	if cfg.RetrievalRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.RetrievalRRFK)
	}
	if cfg.RetrievalScoreFloor != 0.001 {
		t.Fatalf("expected default score floor 0.001, got %v", cfg.RetrievalScoreFloor)
	}
	if cfg.RerankEnabled {
		t.Fatalf("expected rerank disabled by default")
	}
	if cfg.RegenerateAttempts != 1 {
		t.Fatalf("expected default regenerate attempts 1, got %d", cfg.RegenerateAttempts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9191")
	t.Setenv("RETRIEVAL_TOP_K", "8")
	t.Setenv("RETRIEVAL_SCORE_FLOOR", "0.05")
	t.Setenv("RERANK_ENABLED", "true")
	t.Setenv("GENERATION_TEMPERATURE", "0.7")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.APIPort != "9191" {
		t.Fatalf("expected api port override, got %q", cfg.APIPort)
	}
	if cfg.RetrievalTopK != 8 {
		t.Fatalf("expected top k 8, got %d", cfg.RetrievalTopK)
	}
	if cfg.RetrievalScoreFloor != 0.05 {
		t.Fatalf("expected score floor 0.05, got %v", cfg.RetrievalScoreFloor)
	}
	if !cfg.RerankEnabled {
		t.Fatalf("expected rerank enabled")
	}
	if cfg.GenerationTemperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg.GenerationTemperature)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit rps 2.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "many")
	t.Setenv("RETRIEVAL_SCORE_FLOOR", "tiny")
	t.Setenv("RERANK_ENABLED", "absolutely")

	cfg := Load()
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.RetrievalScoreFloor != 0.001 {
		t.Fatalf("expected fallback score floor 0.001, got %v", cfg.RetrievalScoreFloor)
	}
	if cfg.RerankEnabled {
		t.Fatalf("expected fallback rerank disabled")
	}
}
