package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrag_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 书籍处理指标
var (
	// IngestionsTotal 书籍入库总数
	IngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_ingestions_total",
			Help: "书籍入库处理总数",
		},
		[]string{"status"},
	)

	// IngestionDuration 书籍入库耗时（秒）
	// 包含解析、分块、向量化与制品落盘全流程
	IngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrag_ingestion_duration_seconds",
			Help:    "书籍入库耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ChunksIndexed 已索引的分块总数
	ChunksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_chunks_indexed_total",
			Help: "已向量化并写入索引的分块总数",
		},
	)
)

// 问答指标
var (
	// QuestionsTotal 问答请求总数
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_questions_total",
			Help: "书籍问答请求总数",
		},
		[]string{"status"},
	)

	// RetrievalDuration 检索耗时（秒），不含生成
	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrag_retrieval_duration_seconds",
			Help:    "向量检索耗时分布",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)
)
