package domain

// KeyPrefix namespaces every key courtside reads or writes in the shared store.
const KeyPrefix = "courtside:"

// DefaultMatchIndex is the FT index holding match vectors and metadata.
const DefaultMatchIndex = KeyPrefix + "matches:idx"

// VectorConfig holds the embedding settings the match index was built with.
type VectorConfig struct {
	Model            string
	Dimensions       int
	DistanceMetric   string
	QueryInstruction string
}

// DefaultVectorConfig matches the model used to embed match descriptions at ingestion.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     1536,
		DistanceMetric: "cosine",
	}
}
