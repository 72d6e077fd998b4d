package knowledge

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vectors[i] = v
	}
	return vectors
}

func TestReduceToTargetDimension(t *testing.T) {
	reducer := NewDimensionReducer()

	reduced, err := reducer.Reduce(randomVectors(20, 16, 1), 4)
	require.NoError(t, err)
	require.Len(t, reduced, 20)
	for _, v := range reduced {
		assert.Len(t, v, 4)
	}
}

// 目标维度超过原始维度时收敛到原始维度，不报错
func TestReduceClampsTargetDimension(t *testing.T) {
	reducer := NewDimensionReducer()

	reduced, err := reducer.Reduce(randomVectors(50, 100, 2), 1000)
	require.NoError(t, err)
	require.Len(t, reduced, 50)
	for _, v := range reduced {
		assert.Len(t, v, 100)
	}
}

func TestFitRejectsInvalidInput(t *testing.T) {
	reducer := NewDimensionReducer()

	_, err := reducer.Fit(nil, 4)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	_, err = reducer.Fit(randomVectors(5, 8, 3), 0)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConfiguration))

	ragged := randomVectors(3, 8, 4)
	ragged[1] = ragged[1][:5]
	_, err = reducer.Fit(ragged, 4)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEmbeddingDimension))
}

func TestProjectionApplyChecksDimension(t *testing.T) {
	reducer := NewDimensionReducer()

	projection, err := reducer.Fit(randomVectors(10, 8, 5), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, projection.OutputDim())

	_, err = projection.Apply(randomVectors(2, 6, 6))
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEmbeddingDimension))
}

// 同一个投影重复应用结果一致，Reduce等价于Fit+Apply
func TestProjectionDeterminism(t *testing.T) {
	reducer := NewDimensionReducer()
	vectors := randomVectors(12, 10, 7)

	projection, err := reducer.Fit(vectors, 4)
	require.NoError(t, err)

	first, err := projection.Apply(vectors)
	require.NoError(t, err)
	second, err := projection.Apply(vectors)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reduced, err := reducer.Reduce(vectors, 4)
	require.NoError(t, err)
	assert.Equal(t, first, reduced)
}

func TestExplainedVarianceProfile(t *testing.T) {
	reducer := NewDimensionReducer()

	profile, err := reducer.ExplainedVarianceProfile(randomVectors(30, 12, 8), 6)
	require.NoError(t, err)
	require.Len(t, profile, 6)

	// 累计占比单调不减且不超过1
	for i := 1; i < len(profile); i++ {
		assert.GreaterOrEqual(t, profile[i], profile[i-1])
	}
	assert.LessOrEqual(t, profile[len(profile)-1], 1.0+1e-9)
}
