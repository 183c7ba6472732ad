package domain

// Hit is a single nearest-neighbor match: the raw payload stored next to the vector
// and its similarity score (higher is closer).
type Hit struct {
	Payload string
	Score   float64
}

// IndexDocument is one entry written to a vector index.
type IndexDocument struct {
	Key     string
	Payload string
	Vector  []float32
}
