package domain

// Embedding — вектор изображения, полученный от ML-сервиса.
type Embedding struct {
	Vector       []float32
	ModelVersion string
}

func NewEmbedding(vector []float32, modelVersion string) Embedding {
	return Embedding{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}
