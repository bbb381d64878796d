package library

import (
	"encoding/json"
	"fmt"

	"github.com/coolbeans/regchunk/pkg/chunk"
)

// SerializeChunks encodes chunks as an indented JSON array. A nil slice is
// written as [].
func SerializeChunks(chunks []chunk.Chunk) ([]byte, error) {
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}
	return json.MarshalIndent(chunks, "", "  ")
}

// DeserializeChunks decodes a JSON array written by SerializeChunks.
func DeserializeChunks(data []byte) ([]chunk.Chunk, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	var chunks []chunk.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chunks: %w", err)
	}
	return chunks, nil
}
