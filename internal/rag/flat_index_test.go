package rag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlatIndex_Build(t *testing.T) {
	idx, err := BuildFlatIndex([][]float32{
		{0, 0}, {1, 0}, {0, 1},
	})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())
	require.Equal(t, 2, idx.Dimension())
}

func TestFlatIndex_BuildDimensionMismatch(t *testing.T) {
	_, err := BuildFlatIndex([][]float32{
		{0, 0}, {1, 0, 0},
	})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_SearchNearestFirst(t *testing.T) {
	vectors := [][]float32{
		{10, 10},
		{0, 1},
		{5, 5},
		{0, 0.5},
	}
	idx, err := BuildFlatIndex(vectors)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	require.Equal(t, 3, hits[0].Row) // (0,0.5) 最近
	require.Equal(t, 1, hits[1].Row)
	require.Equal(t, 2, hits[2].Row)
	require.Equal(t, 0, hits[3].Row)
}

func TestFlatIndex_ExactMatchHasZeroDistance(t *testing.T) {
	vectors := [][]float32{
		{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {10, 11, 12},
	}
	idx, err := BuildFlatIndex(vectors)
	require.NoError(t, err)

	// 查询恰好等于第 3 行向量（row 3）
	hits, err := idx.Search([]float32{10, 11, 12}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 3, hits[0].Row)
	require.Equal(t, float32(0), hits[0].Distance)
}

func TestFlatIndex_TieBrokenByLowerRow(t *testing.T) {
	// 四个向量与原点等距
	vectors := [][]float32{
		{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	}
	idx, err := BuildFlatIndex(vectors)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	for i, h := range hits {
		require.Equal(t, i, h.Row)
		require.Equal(t, float32(1), h.Distance)
	}
}

func TestFlatIndex_FewerRowsThanK(t *testing.T) {
	idx, err := BuildFlatIndex([][]float32{{1, 1}, {2, 2}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestFlatIndex_EmptyIndexSearch(t *testing.T) {
	idx, err := BuildFlatIndex(nil)
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestFlatIndex_QueryDimensionMismatch(t *testing.T) {
	idx, err := BuildFlatIndex([][]float32{{1, 2}})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 2, 3}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_SaveLoadRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{0.1, -0.2, 0.3},
		{1.5, 2.5, -3.5},
		{0, 0, 0},
	}
	idx, err := BuildFlatIndex(vectors)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "book.idx")
	require.NoError(t, idx.Save(path))

	loaded, err := LoadFlatIndex(path)
	require.NoError(t, err)
	require.Equal(t, idx.Len(), loaded.Len())
	require.Equal(t, idx.Dimension(), loaded.Dimension())

	// 加载后的检索结果与原索引一致
	query := []float32{0.1, -0.2, 0.3}
	want, err := idx.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeFlatIndex_Corrupt(t *testing.T) {
	// 头部过短
	_, err := DecodeFlatIndex([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorruptIndex)

	// 魔数错误
	bad := make([]byte, 12)
	_, err = DecodeFlatIndex(bad)
	require.ErrorIs(t, err, ErrCorruptIndex)

	// 数据长度和声明不符
	idx, err := BuildFlatIndex([][]float32{{1, 2}})
	require.NoError(t, err)
	enc := idx.Encode()
	_, err = DecodeFlatIndex(enc[:len(enc)-2])
	require.ErrorIs(t, err, ErrCorruptIndex)
}

func TestFlatIndex_EmptyRoundTrip(t *testing.T) {
	idx, err := BuildFlatIndex(nil)
	require.NoError(t, err)

	loaded, err := DecodeFlatIndex(idx.Encode())
	require.NoError(t, err)
	require.Equal(t, 0, loaded.Len())
}
