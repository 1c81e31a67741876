package rag

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// 向量索引错误
var (
	// ErrDimensionMismatch 向量维度不一致
	ErrDimensionMismatch = errors.New("向量维度不一致")
	// ErrCorruptIndex 持久化索引格式损坏
	ErrCorruptIndex = errors.New("索引文件损坏")
)

// flatIndexMagic 索引文件头魔数（"BRFI"）
const flatIndexMagic uint32 = 0x42524649

// FlatIndex 精确 L2 平铺向量索引
// 只支持构建期追加，无删除与更新；持久化为不透明二进制，不加密，
// 加载与检索均不需要密钥
type FlatIndex struct {
	dim  int
	data []float32 // 按行平铺的 N×dim 向量
}

// BuildFlatIndex 从向量列表构建索引
// 所有向量维度必须一致，否则返回 ErrDimensionMismatch
func BuildFlatIndex(vectors [][]float32) (*FlatIndex, error) {
	idx := &FlatIndex{}
	if len(vectors) == 0 {
		return idx, nil
	}

	idx.dim = len(vectors[0])
	if idx.dim == 0 {
		return nil, fmt.Errorf("%w: 向量维度为 0", ErrDimensionMismatch)
	}
	idx.data = make([]float32, 0, len(vectors)*idx.dim)

	for i, v := range vectors {
		if len(v) != idx.dim {
			return nil, fmt.Errorf("%w: 第 %d 行维度 %d，期望 %d", ErrDimensionMismatch, i, len(v), idx.dim)
		}
		idx.data = append(idx.data, v...)
	}
	return idx, nil
}

// Len 向量行数
func (idx *FlatIndex) Len() int {
	if idx.dim == 0 {
		return 0
	}
	return len(idx.data) / idx.dim
}

// Dimension 向量维度
func (idx *FlatIndex) Dimension() int {
	return idx.dim
}

// SearchHit 一次检索命中：行号与平方欧氏距离
type SearchHit struct {
	Row      int
	Distance float32
}

// Search 返回与查询向量最近的 ≤k 行，按平方 L2 距离升序
// 距离相同时行号小者在前，保证结果可复现；空索引返回空列表而非错误
func (idx *FlatIndex) Search(query []float32, k int) ([]SearchHit, error) {
	n := idx.Len()
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: 查询向量维度 %d，索引维度 %d", ErrDimensionMismatch, len(query), idx.dim)
	}

	// 距离用 float64 累加，避免求和顺序引入的抖动影响排序
	dists := make([]float64, n)
	for row := 0; row < n; row++ {
		base := row * idx.dim
		var sum float64
		for j := 0; j < idx.dim; j++ {
			d := float64(idx.data[base+j]) - float64(query[j])
			sum += d * d
		}
		dists[row] = sum
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	sort.Slice(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		if dists[ra] != dists[rb] {
			return dists[ra] < dists[rb]
		}
		return ra < rb
	})

	if k > n {
		k = n
	}
	hits := make([]SearchHit, k)
	for i := 0; i < k; i++ {
		hits[i] = SearchHit{Row: rows[i], Distance: float32(dists[rows[i]])}
	}
	return hits, nil
}

// Encode 序列化为二进制
// 格式：魔数(4B) | 维度(4B) | 行数(4B) | 行优先的 float32 小端数据
func (idx *FlatIndex) Encode() []byte {
	n := idx.Len()
	buf := make([]byte, 12+len(idx.data)*4)
	binary.LittleEndian.PutUint32(buf[0:4], flatIndexMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(idx.dim))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n))
	for i, f := range idx.data {
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeFlatIndex 从二进制还原索引
// 文件头不可读或数据长度不符时返回 ErrCorruptIndex
func DecodeFlatIndex(data []byte) (*FlatIndex, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: 文件头不完整", ErrCorruptIndex)
	}
	if binary.LittleEndian.Uint32(data[0:4]) != flatIndexMagic {
		return nil, fmt.Errorf("%w: 魔数不匹配", ErrCorruptIndex)
	}

	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	n := int(binary.LittleEndian.Uint32(data[8:12]))
	want := 12 + n*dim*4
	if dim < 0 || n < 0 || len(data) != want {
		return nil, fmt.Errorf("%w: 数据长度 %d，期望 %d", ErrCorruptIndex, len(data), want)
	}

	idx := &FlatIndex{dim: dim}
	if n == 0 {
		idx.dim = 0
		return idx, nil
	}

	idx.data = make([]float32, n*dim)
	for i := range idx.data {
		idx.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[12+i*4:]))
	}
	return idx, nil
}

// Save 将索引写入文件
func (idx *FlatIndex) Save(path string) error {
	if err := os.WriteFile(path, idx.Encode(), 0644); err != nil {
		return fmt.Errorf("写入索引文件失败: %w", err)
	}
	return nil
}

// LoadFlatIndex 从文件加载索引
func LoadFlatIndex(path string) (*FlatIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取索引文件失败: %w", err)
	}
	return DecodeFlatIndex(data)
}
