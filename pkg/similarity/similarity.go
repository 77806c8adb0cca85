// Package similarity реализует ранжирование векторов по косинусной близости
// полным линейным проходом. Индекс не строится: время запроса O(N·d),
// где N — число кандидатов, d — размерность вектора.
package similarity

import (
	"math"
	"slices"
)

// Scored — кандидат с посчитанной близостью к запросу.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Cosine возвращает косинусную близость a и b в диапазоне [-1, 1].
// Для нулевого вектора, пустых векторов и векторов разной длины возвращается 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / math.Sqrt(normA*normB)
	switch {
	case math.IsNaN(score):
		return 0
	case score > 1:
		return 1
	case score < -1:
		return -1
	}

	return score
}

// TopK возвращает не более k кандидатов с наибольшей близостью к query.
//
// vector извлекает вектор кандидата; кандидаты без вектора не ранжируются.
// skip, если задан, исключает кандидатов до усечения до k, поэтому исключение
// не уменьшает размер выдачи при достаточном числе кандидатов.
// При равной близости сохраняется исходный порядок items.
func TopK[T any](query []float32, items []T, k int, vector func(T) []float32, skip func(T) bool) []Scored[T] {
	if k <= 0 || len(items) == 0 {
		return []Scored[T]{}
	}

	scored := make([]Scored[T], 0, len(items))
	for _, item := range items {
		vec := vector(item)
		if len(vec) == 0 {
			continue
		}
		if skip != nil && skip(item) {
			continue
		}

		scored = append(scored, Scored[T]{Item: item, Score: Cosine(query, vec)})
	}

	slices.SortStableFunc(scored, func(a, b Scored[T]) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	return scored
}
