package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineErrorMessage(t *testing.T) {
	err := NewExtractionError("failed to extract text from broken.pdf", nil)
	assert.Equal(t, "extract: failed to extract text from broken.pdf", err.Error())

	cause := stderrors.New("unexpected EOF")
	withCause := NewExtractionError("failed to extract text", cause)
	assert.Equal(t, "extract: failed to extract text: unexpected EOF", withCause.Error())
	assert.Equal(t, cause, stderrors.Unwrap(withCause))
}

func TestIsKind(t *testing.T) {
	err := NewEmbeddingDimensionError("vector 3 has dimension 512, expected 768")
	assert.True(t, IsKind(err, KindEmbeddingDimension))
	assert.False(t, IsKind(err, KindEmbeddingProvider))
	assert.False(t, IsKind(stderrors.New("plain"), KindEmbeddingDimension))

	// 包装后仍可识别
	wrapped := fmt.Errorf("pipeline failed: %w", err)
	assert.True(t, IsKind(wrapped, KindEmbeddingDimension))
}

func TestAsPipelineError(t *testing.T) {
	err := NewNoDocumentError()
	pe := AsPipelineError(fmt.Errorf("request failed: %w", err))
	require.NotNil(t, pe)
	assert.Equal(t, KindNoDocument, pe.Kind)
	assert.Equal(t, "No PDF uploaded. Please upload a PDF first.", pe.Message)

	assert.Nil(t, AsPipelineError(stderrors.New("plain")))
	assert.Nil(t, AsPipelineError(nil))
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *PipelineError
		status int
	}{
		{NewNoDocumentError(), http.StatusBadRequest},
		{NewConfigurationError("bad overlap"), http.StatusBadRequest},
		{NewExtractionError("broken", nil), http.StatusUnprocessableEntity},
		{NewEmbeddingProviderError("timeout", nil), http.StatusBadGateway},
		{NewIndexProvisioningError("unreachable", nil), http.StatusBadGateway},
		{NewVectorDeletionError("partial", nil), http.StatusBadGateway},
		{NewEmbeddingDimensionError("mismatch"), http.StatusInternalServerError},
		{NewPreprocessingUnavailable("lexicon missing", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), "kind %s", tc.err.Kind)
	}
}
