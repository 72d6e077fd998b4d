package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 流水线错误类别
type ErrorKind string

// 预定义错误类别，每个流水线阶段抛出自己的类别
const (
	KindExtraction               ErrorKind = "EXTRACTION_ERROR"
	KindPreprocessingUnavailable ErrorKind = "PREPROCESSING_UNAVAILABLE"
	KindEmbeddingProvider        ErrorKind = "EMBEDDING_PROVIDER_ERROR"
	KindEmbeddingDimension       ErrorKind = "EMBEDDING_DIMENSION_ERROR"
	KindIndexProvisioning        ErrorKind = "INDEX_PROVISIONING_ERROR"
	KindVectorDeletion           ErrorKind = "VECTOR_DELETION_ERROR"
	KindConfiguration            ErrorKind = "CONFIGURATION_ERROR"
	KindNoDocument               ErrorKind = "NO_DOCUMENT_LOADED"
)

// PipelineError 流水线阶段错误
// 每个阶段捕获自己的失败并以具体类别重新抛出，请求层在边界统一转换
type PipelineError struct {
	Kind    ErrorKind `json:"kind"`
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error 实现error接口
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

// Unwrap 返回底层错误
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is 按类别匹配，支持errors.Is(err, &PipelineError{Kind: ...})
func (e *PipelineError) Is(target error) bool {
	var pe *PipelineError
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Kind == e.Kind
}

// WithCause 添加错误原因
func (e *PipelineError) WithCause(cause error) *PipelineError {
	e.Cause = cause
	return e
}

// HTTPStatus 根据错误类别映射HTTP状态码
func (e *PipelineError) HTTPStatus() int {
	switch e.Kind {
	case KindConfiguration, KindNoDocument:
		return http.StatusBadRequest
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindEmbeddingProvider, KindIndexProvisioning, KindVectorDeletion:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 错误构造函数

// NewExtractionError 文档不可读或损坏
func NewExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExtraction, Stage: "extract", Message: message, Cause: cause}
}

// NewPreprocessingUnavailable 语言资源加载失败（致命，不重试）
func NewPreprocessingUnavailable(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindPreprocessingUnavailable, Stage: "preprocess", Message: message, Cause: cause}
}

// NewEmbeddingProviderError 嵌入服务网络或鉴权失败（不自动重试，直接上抛）
func NewEmbeddingProviderError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindEmbeddingProvider, Stage: "embed", Message: message, Cause: cause}
}

// NewEmbeddingDimensionError 返回向量长度不一致
func NewEmbeddingDimensionError(message string) *PipelineError {
	return &PipelineError{Kind: KindEmbeddingDimension, Stage: "embed", Message: message}
}

// NewIndexProvisioningError 索引创建或查找失败
func NewIndexProvisioningError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindIndexProvisioning, Stage: "index", Message: message, Cause: cause}
}

// NewVectorDeletionError 向量删除失败
func NewVectorDeletionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindVectorDeletion, Stage: "index", Message: message, Cause: cause}
}

// NewConfigurationError 配置无效（如chunk_size <= overlap）
func NewConfigurationError(message string) *PipelineError {
	return &PipelineError{Kind: KindConfiguration, Stage: "config", Message: message}
}

// NewNoDocumentError 会话中没有已加载的文档
func NewNoDocumentError() *PipelineError {
	return &PipelineError{Kind: KindNoDocument, Stage: "session", Message: "No PDF uploaded. Please upload a PDF first."}
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// AsPipelineError 提取PipelineError，非流水线错误返回nil
func AsPipelineError(err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return nil
}
