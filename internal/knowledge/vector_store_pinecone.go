package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// PineconeOptions Pinecone客户端配置
type PineconeOptions struct {
	APIKey  string
	Cloud   string
	Region  string
	Timeout time.Duration
}

type pineconeVectorStore struct {
	client     *http.Client
	apiKey     string
	cloud      string
	region     string
	controlURL string
	dataURL    string
	dimension  int
}

// NewPineconeVectorStore 创建Pinecone向量存储
func NewPineconeVectorStore(opts PineconeOptions) (VectorIndex, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	if opts.Cloud == "" {
		opts.Cloud = "aws"
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &pineconeVectorStore{
		client: &http.Client{
			Timeout: timeout,
		},
		apiKey:     opts.APIKey,
		cloud:      opts.Cloud,
		region:     opts.Region,
		controlURL: "https://api.pinecone.io",
	}, nil
}

func formatPineconeMetric(value string) string {
	switch strings.ToLower(value) {
	case "dotproduct", "dot", "ip":
		return "dotproduct"
	case "euclidean", "l2":
		return "euclidean"
	default:
		return "cosine"
	}
}

// EnsureIndex 查找索引，不存在时创建serverless索引并等待就绪
func (s *pineconeVectorStore) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	s.dimension = dimension

	host, err := s.describeIndexHost(ctx, name)
	if err == nil && host != "" {
		s.dataURL = "https://" + host
		return nil
	}

	body := map[string]interface{}{
		"name":      name,
		"dimension": dimension,
		"metric":    formatPineconeMetric(metric),
		"spec": map[string]interface{}{
			"serverless": map[string]interface{}{
				"cloud":  s.cloud,
				"region": s.region,
			},
		},
	}
	resp, err := s.doRequest(ctx, http.MethodPost, s.controlURL+"/indexes", body)
	if err != nil {
		return apperrors.NewIndexProvisioningError("pinecone create index request failed", err)
	}
	defer resp.Body.Close()
	// 409表示并发创建下索引已经存在，同样视为成功
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		return apperrors.NewIndexProvisioningError(
			fmt.Sprintf("pinecone create index failed: %s", readErrorBody(resp)), nil)
	}
	io.Copy(io.Discard, resp.Body)

	// 新建索引要等host就绪
	for attempt := 0; attempt < 10; attempt++ {
		host, err := s.describeIndexHost(ctx, name)
		if err == nil && host != "" {
			s.dataURL = "https://" + host
			return nil
		}
		select {
		case <-ctx.Done():
			return apperrors.NewIndexProvisioningError("pinecone index not ready", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return apperrors.NewIndexProvisioningError("pinecone index did not become ready", nil)
}

func (s *pineconeVectorStore) describeIndexHost(ctx context.Context, name string) (string, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("%s/indexes/%s", s.controlURL, name), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("describe index %s: %s", name, resp.Status)
	}

	var payload struct {
		Host   string `json:"host"`
		Status struct {
			Ready bool `json:"ready"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if !payload.Status.Ready {
		return "", fmt.Errorf("index %s not ready", name)
	}
	return payload.Host, nil
}

func (s *pineconeVectorStore) Upsert(ctx context.Context, vectors []Vector) (int, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	items := make([]map[string]interface{}, len(vectors))
	for i, v := range vectors {
		if len(v.Values) != s.dimension {
			return 0, apperrors.NewEmbeddingDimensionError(
				fmt.Sprintf("vector %s has dimension %d, index expects %d", v.ID, len(v.Values), s.dimension))
		}
		item := map[string]interface{}{
			"id":     v.ID,
			"values": v.Values,
		}
		if v.Metadata != nil {
			item["metadata"] = v.Metadata
		}
		items[i] = item
	}

	resp, err := s.doRequest(ctx, http.MethodPost, s.dataURL+"/vectors/upsert", map[string]interface{}{
		"vectors": items,
	})
	if err != nil {
		return 0, fmt.Errorf("pinecone upsert request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("pinecone upsert failed: %s", readErrorBody(resp))
	}

	var payload struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return len(vectors), nil
	}
	return payload.UpsertedCount, nil
}

func (s *pineconeVectorStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	resp, err := s.doRequest(ctx, http.MethodPost, s.dataURL+"/query", map[string]interface{}{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": includeMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone query failed: %s", readErrorBody(resp))
	}

	var payload struct {
		Matches []struct {
			ID       string                 `json:"id"`
			Score    float64                `json:"score"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("pinecone query response invalid: %w", err)
	}

	matches := make([]Match, len(payload.Matches))
	for i, m := range payload.Matches {
		matches[i] = Match{ID: m.ID, Score: m.Score}
		if includeMetadata {
			matches[i].Metadata = m.Metadata
		}
	}
	return matches, nil
}

func (s *pineconeVectorStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	resp, err := s.doRequest(ctx, http.MethodPost, s.dataURL+"/vectors/delete", map[string]interface{}{
		"ids": ids,
	})
	if err != nil {
		return 0, apperrors.NewVectorDeletionError("pinecone delete request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, apperrors.NewVectorDeletionError(
			fmt.Sprintf("pinecone delete failed: %s", readErrorBody(resp)), nil)
	}
	io.Copy(io.Discard, resp.Body)
	return len(ids), nil
}

func (s *pineconeVectorStore) Stats(ctx context.Context) (IndexStats, error) {
	stats := IndexStats{}

	resp, err := s.doRequest(ctx, http.MethodPost, s.dataURL+"/describe_index_stats", map[string]interface{}{})
	if err != nil {
		return stats, fmt.Errorf("pinecone stats request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return stats, fmt.Errorf("pinecone stats failed: %s", readErrorBody(resp))
	}

	var payload struct {
		TotalVectorCount int64   `json:"totalVectorCount"`
		Dimension        int     `json:"dimension"`
		IndexFullness    float64 `json:"indexFullness"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return stats, fmt.Errorf("pinecone stats response invalid: %w", err)
	}

	stats.TotalVectorCount = payload.TotalVectorCount
	stats.Dimension = payload.Dimension
	stats.IndexFullness = payload.IndexFullness
	return stats, nil
}

func (s *pineconeVectorStore) Ready() bool {
	return s.client != nil && s.dataURL != ""
}

func (s *pineconeVectorStore) doRequest(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Api-Key", s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(req)
}

func readErrorBody(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if err != nil || len(data) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
}
