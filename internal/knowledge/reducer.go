package knowledge

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

// Projection 拟合后的线性投影，持有均值和主成分
// 同一个Projection可以重复应用到后续批次，保证降维结果可比
type Projection struct {
	mean       []float64
	components *mat.Dense // d x k
	inputDim   int
	outputDim  int
}

// OutputDim 返回投影后的维度
func (p *Projection) OutputDim() int {
	return p.outputDim
}

// Apply 将投影应用到一批向量，输入维度必须与拟合时一致
func (p *Projection) Apply(vectors [][]float32) ([][]float32, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	for i, v := range vectors {
		if len(v) != p.inputDim {
			return nil, apperrors.NewEmbeddingDimensionError(
				fmt.Sprintf("vector %d has dimension %d, projection expects %d", i, len(v), p.inputDim))
		}
	}

	centered := toCenteredDense(vectors, p.mean)
	var projected mat.Dense
	projected.Mul(centered, p.components)

	n := len(vectors)
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		row := make([]float32, p.outputDim)
		for j := 0; j < p.outputDim; j++ {
			row[j] = float32(projected.At(i, j))
		}
		out[i] = row
	}
	return out, nil
}

// DimensionReducer 基于PCA的线性降维器
type DimensionReducer struct{}

// NewDimensionReducer 创建降维器
func NewDimensionReducer() *DimensionReducer {
	return &DimensionReducer{}
}

// Fit 在给定批次上拟合投影，目标维度超过原始维度时收敛到原始维度
func (r *DimensionReducer) Fit(vectors [][]float32, targetDim int) (*Projection, error) {
	if len(vectors) == 0 {
		return nil, apperrors.NewConfigurationError("cannot fit projection on empty batch")
	}
	if targetDim <= 0 {
		return nil, apperrors.NewConfigurationError("target dimension must be positive")
	}

	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, apperrors.NewEmbeddingDimensionError("inconsistent vector dimensions in batch")
		}
	}

	// 目标维度以原始维度为上限
	k := targetDim
	if k > dim {
		k = dim
	}

	means := columnMeans(vectors)
	centered := toCenteredDense(vectors, means)

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, apperrors.NewConfigurationError("svd factorization failed")
	}

	var vt mat.Dense
	svd.VTo(&vt)
	_, rank := vt.Dims()

	// 样本数少于目标维度时，秩以外的成分方差为零，用零列补齐
	components := mat.NewDense(dim, k, nil)
	for j := 0; j < k && j < rank; j++ {
		for i := 0; i < dim; i++ {
			components.Set(i, j, vt.At(i, j))
		}
	}

	return &Projection{
		mean:       means,
		components: components,
		inputDim:   dim,
		outputDim:  k,
	}, nil
}

// Reduce 在一个批次上拟合并应用投影
// 每次调用独立重新拟合：不同批次的降维结果互不可比，整个语料必须一次性降维
func (r *DimensionReducer) Reduce(vectors [][]float32, targetDim int) ([][]float32, error) {
	projection, err := r.Fit(vectors, targetDim)
	if err != nil {
		return nil, err
	}
	return projection.Apply(vectors)
}

// ExplainedVarianceProfile 返回前maxComponents个成分的累计方差占比，仅用于诊断
func (r *DimensionReducer) ExplainedVarianceProfile(vectors [][]float32, maxComponents int) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, apperrors.NewConfigurationError("cannot analyze empty batch")
	}

	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return nil, apperrors.NewEmbeddingDimensionError("inconsistent vector dimensions in batch")
		}
	}

	means := columnMeans(vectors)
	centered := toCenteredDense(vectors, means)

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, apperrors.NewConfigurationError("svd factorization failed")
	}

	singular := svd.Values(nil)
	variances := make([]float64, len(singular))
	var total float64
	n := float64(len(vectors))
	for i, s := range singular {
		variances[i] = s * s / (n - 1)
		total += variances[i]
	}
	if total == 0 {
		total = 1
	}

	if maxComponents > len(variances) {
		maxComponents = len(variances)
	}
	cumulative := make([]float64, maxComponents)
	var sum float64
	for i := 0; i < maxComponents; i++ {
		sum += variances[i] / total
		cumulative[i] = sum
	}
	return cumulative, nil
}

func columnMeans(vectors [][]float32) []float64 {
	dim := len(vectors[0])
	cols := make([]float64, len(vectors))
	means := make([]float64, dim)
	for j := 0; j < dim; j++ {
		for i, v := range vectors {
			cols[i] = float64(v[j])
		}
		means[j] = stat.Mean(cols, nil)
	}
	return means
}

func toCenteredDense(vectors [][]float32, means []float64) *mat.Dense {
	n := len(vectors)
	dim := len(means)
	data := make([]float64, n*dim)
	for i, v := range vectors {
		for j := 0; j < dim; j++ {
			data[i*dim+j] = float64(v[j]) - means[j]
		}
	}
	return mat.NewDense(n, dim, data)
}
