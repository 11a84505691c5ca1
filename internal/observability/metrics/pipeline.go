package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askdocs/askdocs/internal/core/domain"
)

// PipelineMetrics implements the pipeline observer hook of the answer
// usecase, exporting stage outcomes on the shared server registry.
type PipelineMetrics struct {
	classificationsTotal *prometheus.CounterVec
	subQuestions         prometheus.Histogram
	aggregatedChunks     prometheus.Histogram
	duplicatesRemoved    prometheus.Counter
	validationTotal      *prometheus.CounterVec
	qualityScore         prometheus.Histogram
}

func NewPipelineMetrics(registry *prometheus.Registry, service string) *PipelineMetrics {
	labels := prometheus.Labels{"service": service}

	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "askdocs",
			Subsystem:   "pipeline",
			Name:        "classifications_total",
			Help:        "Query classifications by complexity and intent.",
			ConstLabels: labels,
		},
		[]string{"complexity", "intent"},
	)
	subQuestions := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "askdocs",
			Subsystem:   "pipeline",
			Name:        "sub_questions",
			Help:        "Distribution of sub-questions per query plan.",
			Buckets:     []float64{1, 2, 3, 4, 5, 6},
			ConstLabels: labels,
		},
	)
	aggregatedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "askdocs",
			Subsystem:   "pipeline",
			Name:        "aggregated_chunks",
			Help:        "Distribution of deduplicated context chunks per query.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: labels,
		},
	)
	duplicatesRemoved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "askdocs",
			Subsystem:   "pipeline",
			Name:        "duplicates_removed_total",
			Help:        "Total duplicate chunks removed during aggregation.",
			ConstLabels: labels,
		},
	)
	validationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "askdocs",
			Subsystem:   "validation",
			Name:        "answers_total",
			Help:        "Validated answers by recommended action.",
			ConstLabels: labels,
		},
		[]string{"action"},
	)
	qualityScore := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "askdocs",
			Subsystem:   "validation",
			Name:        "quality_score",
			Help:        "Distribution of answer quality scores.",
			Buckets:     []float64{0, 25, 50, 60, 70, 80, 90, 95, 100},
			ConstLabels: labels,
		},
	)

	registry.MustRegister(
		classificationsTotal,
		subQuestions,
		aggregatedChunks,
		duplicatesRemoved,
		validationTotal,
		qualityScore,
	)

	return &PipelineMetrics{
		classificationsTotal: classificationsTotal,
		subQuestions:         subQuestions,
		aggregatedChunks:     aggregatedChunks,
		duplicatesRemoved:    duplicatesRemoved,
		validationTotal:      validationTotal,
		qualityScore:         qualityScore,
	}
}

func (m *PipelineMetrics) QueryClassified(complexity domain.QueryComplexity, intent domain.Intent) {
	m.classificationsTotal.WithLabelValues(string(complexity), string(intent)).Inc()
}

func (m *PipelineMetrics) PlanBuilt(subQuestions int) {
	m.subQuestions.Observe(float64(subQuestions))
}

func (m *PipelineMetrics) ChunksAggregated(total, duplicatesRemoved int) {
	m.aggregatedChunks.Observe(float64(total))
	if duplicatesRemoved > 0 {
		m.duplicatesRemoved.Add(float64(duplicatesRemoved))
	}
}

func (m *PipelineMetrics) AnswerValidated(action domain.RecommendedAction, qualityScore int) {
	m.validationTotal.WithLabelValues(string(action)).Inc()
	m.qualityScore.Observe(float64(qualityScore))
}
