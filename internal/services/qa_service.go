package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/aihub/pdfqa-go/internal/cache"
	apperrors "github.com/aihub/pdfqa-go/internal/errors"
	"github.com/aihub/pdfqa-go/internal/knowledge"
	"github.com/aihub/pdfqa-go/internal/logger"
	"github.com/aihub/pdfqa-go/internal/metrics"
)

// RetrievedChunk 一条检索命中，Index是块在文档内的序号
type RetrievedChunk struct {
	DocumentID string
	Index      int
	Score      float64
	Text       string
}

// AnswerGenerator 把检索到的块组装成答案
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, chunks []RetrievedChunk) (string, error)
}

// QAServiceOptions QAService构造参数
type QAServiceOptions struct {
	Store     *knowledge.DocumentStore
	Chunker   *knowledge.Chunker
	Parsers   *knowledge.FileParserManager
	Sessions  *SessionRegistry
	Cache     cache.AnswerCache
	Answerer  AnswerGenerator
	TopK      int
	Reduce    bool
	TargetDim int
}

// QAService 文档问答编排服务
// 上传和提问共享同一个DocumentStore，块文本保存在会话里用于答案组装
type QAService struct {
	store     *knowledge.DocumentStore
	chunker   *knowledge.Chunker
	parsers   *knowledge.FileParserManager
	sessions  *SessionRegistry
	cache     cache.AnswerCache
	answerer  AnswerGenerator
	topK      int
	reduce    bool
	targetDim int
}

// NewQAService 创建问答服务
func NewQAService(opts QAServiceOptions) (*QAService, error) {
	if opts.Store == nil {
		return nil, apperrors.NewConfigurationError("document store is required")
	}
	if opts.Chunker == nil {
		return nil, apperrors.NewConfigurationError("chunker is required")
	}
	if opts.Parsers == nil {
		opts.Parsers = knowledge.NewFileParserManager()
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessionRegistry()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNoopAnswerCache()
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	return &QAService{
		store:     opts.Store,
		chunker:   opts.Chunker,
		parsers:   opts.Parsers,
		sessions:  opts.Sessions,
		cache:     opts.Cache,
		answerer:  opts.Answerer,
		topK:      opts.TopK,
		reduce:    opts.Reduce,
		targetDim: opts.TargetDim,
	}, nil
}

// UploadDocument 处理一次文档上传：抽取→分块→嵌入→写入索引→替换会话文档
// 同一会话的旧文档向量在替换后尽力删除，删除失败不影响上传结果
func (s *QAService) UploadDocument(ctx context.Context, sessionID, filename string, data []byte) (int, error) {
	text, err := s.parsers.ParseFile(bytes.NewReader(data), filename)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("error").Inc()
		return 0, err
	}

	chunks := s.chunker.Split(knowledge.CleanDocumentText(text))
	if len(chunks) == 0 {
		metrics.DocumentsProcessed.WithLabelValues("error").Inc()
		return 0, apperrors.NewExtractionError(fmt.Sprintf("no usable text in %s", filename), nil)
	}

	documentID := NewDocumentID()
	count, err := s.store.UpsertChunks(ctx, documentID, chunks, s.reduce, s.targetDim)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues("error").Inc()
		return 0, err
	}

	previous := s.sessions.Swap(sessionID, &DocumentSession{
		DocumentID: documentID,
		Filename:   filename,
		Chunks:     chunks,
		UploadedAt: time.Now(),
	})
	s.cleanupDocument(ctx, previous)

	metrics.DocumentsProcessed.WithLabelValues("success").Inc()
	metrics.ChunksUpserted.Add(float64(count))
	logger.Info("document processed",
		zap.String("session_id", normalizeSessionID(sessionID)),
		zap.String("document_id", documentID),
		zap.String("filename", filename),
		zap.Int("chunks", count))
	return count, nil
}

// AskQuestion 回答当前会话文档上的问题
// 会话没有文档时直接返回错误，不访问嵌入provider和索引
func (s *QAService) AskQuestion(ctx context.Context, sessionID, question string) (string, error) {
	start := time.Now()

	session := s.sessions.Get(sessionID)
	if session == nil || len(session.Chunks) == 0 {
		metrics.QuestionsAnswered.WithLabelValues("error").Inc()
		return "", apperrors.NewNoDocumentError()
	}

	if answer, ok := s.cache.Get(ctx, normalizeSessionID(sessionID), session.DocumentID, question); ok {
		metrics.QuestionsAnswered.WithLabelValues("success").Inc()
		metrics.QuestionDuration.Observe(time.Since(start).Seconds())
		return answer, nil
	}

	matches, err := s.store.Query(ctx, question, s.topK, true)
	if err != nil {
		metrics.QuestionsAnswered.WithLabelValues("error").Inc()
		return "", err
	}

	retrieved := s.resolveMatches(session, matches)
	answer, err := s.assembleAnswer(ctx, question, retrieved)
	if err != nil {
		metrics.QuestionsAnswered.WithLabelValues("error").Inc()
		return "", err
	}

	s.cache.Set(ctx, normalizeSessionID(sessionID), session.DocumentID, question, answer)
	metrics.QuestionsAnswered.WithLabelValues("success").Inc()
	metrics.QuestionDuration.Observe(time.Since(start).Seconds())
	return answer, nil
}

// DeleteSession 清除会话文档并尽力删除其向量
func (s *QAService) DeleteSession(ctx context.Context, sessionID string) bool {
	previous := s.sessions.Clear(sessionID)
	if previous == nil {
		return false
	}
	s.cleanupDocument(ctx, previous)
	return true
}

// IndexStats 返回外部索引统计信息
func (s *QAService) IndexStats(ctx context.Context) (knowledge.IndexStats, error) {
	return s.store.Stats(ctx)
}

// Ready 检查下游协作方是否可用
func (s *QAService) Ready() bool {
	return s.store.Ready()
}

// resolveMatches 把索引返回的复合ID解析回会话内的块文本
// 命中其他文档（重建索引的残留）时只保留标识，不取文本
func (s *QAService) resolveMatches(session *DocumentSession, matches []knowledge.Match) []RetrievedChunk {
	retrieved := make([]RetrievedChunk, 0, len(matches))
	for _, m := range matches {
		documentID, index, ok := splitVectorID(m.ID)
		if !ok {
			continue
		}
		chunk := RetrievedChunk{
			DocumentID: documentID,
			Index:      index,
			Score:      m.Score,
		}
		if documentID == session.DocumentID {
			if text, ok := session.ChunkText(index); ok {
				chunk.Text = text
			}
		}
		retrieved = append(retrieved, chunk)
	}
	return retrieved
}

// assembleAnswer 有生成器时交给LLM，否则用检索结果拼出确定性答案
func (s *QAService) assembleAnswer(ctx context.Context, question string, chunks []RetrievedChunk) (string, error) {
	if s.answerer != nil {
		answer, err := s.answerer.Generate(ctx, question, chunks)
		if err == nil && strings.TrimSpace(answer) != "" {
			return answer, nil
		}
		if err != nil {
			logger.Warn("answer generation failed, falling back to placeholder", zap.Error(err))
		}
	}
	return placeholderAnswer(chunks), nil
}

// placeholderAnswer 按相似度顺序列出命中的块
func placeholderAnswer(chunks []RetrievedChunk) string {
	if len(chunks) == 0 {
		return "Based on the document, here are some relevant insights: no matching content found."
	}
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("Chunk %d: %s", chunk.Index, chunkSnippet(chunk))
	}
	return "Based on the document, here are some relevant insights: " + strings.Join(parts, " ")
}

func chunkSnippet(chunk RetrievedChunk) string {
	text := strings.TrimSpace(chunk.Text)
	if text == "" {
		return "Relevant information"
	}
	const maxSnippet = 200
	if len(text) > maxSnippet {
		return text[:maxSnippet] + "..."
	}
	return text
}

// cleanupDocument 尽力删除文档向量，失败记录日志
func (s *QAService) cleanupDocument(ctx context.Context, session *DocumentSession) {
	if session == nil {
		return
	}
	if _, err := s.store.DeleteDocument(ctx, session.DocumentID, len(session.Chunks)); err != nil {
		logger.Warn("failed to delete stale document vectors",
			zap.String("document_id", session.DocumentID),
			zap.Error(err))
	}
}

// splitVectorID 解析"documentID:chunkIndex"复合标识
func splitVectorID(id string) (string, int, bool) {
	pos := strings.LastIndex(id, ":")
	if pos <= 0 || pos == len(id)-1 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[pos+1:])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return id[:pos], index, true
}

// OpenAIAnswerGenerator 基于chat completion的答案生成
type OpenAIAnswerGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnswerGenerator 创建OpenAI答案生成器
func NewOpenAIAnswerGenerator(apiKey, model string) *OpenAIAnswerGenerator {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAnswerGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (g *OpenAIAnswerGenerator) Generate(ctx context.Context, question string, chunks []RetrievedChunk) (string, error) {
	var contextBuilder strings.Builder
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		contextBuilder.WriteString(fmt.Sprintf("[Chunk %d]\n%s\n\n", chunk.Index, chunk.Text))
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You answer questions about an uploaded document. " +
					"Use only the provided excerpts. If they do not contain the answer, say so.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Excerpts:\n\n%sQuestion: %s", contextBuilder.String(), question),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
