package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 流水线指标，由请求处理层打点
var (
	// DocumentsProcessed 按结果统计的文档上传次数
	DocumentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pdfqa",
		Name:      "documents_processed_total",
		Help:      "Number of processed document uploads by status.",
	}, []string{"status"})

	// ChunksUpserted 累计写入索引的向量数
	ChunksUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pdfqa",
		Name:      "chunks_upserted_total",
		Help:      "Total number of chunk vectors upserted into the index.",
	})

	// QuestionsAnswered 按结果统计的提问次数
	QuestionsAnswered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pdfqa",
		Name:      "questions_total",
		Help:      "Number of answered questions by status.",
	}, []string{"status"})

	// QuestionDuration 问答请求耗时，包含嵌入与索引查询的网络往返
	QuestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pdfqa",
		Name:      "question_duration_seconds",
		Help:      "End-to-end latency of question answering.",
		Buckets:   prometheus.DefBuckets,
	})
)
