package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/coolbeans/regchunk/pkg/chunk"
)

const defaultSearchLimit = 10

const hitColumns = `c.chunk_id, c.text, c.element_type, c.number, c.element_rank, c.context,
	c.page, c.char_length, c.is_partial, c.treatment, c.tags, d.id, d.name`

// SearchText runs an FTS5 keyword search over chunk text and breadcrumbs.
// Each word of query becomes a quoted term and terms are OR-ed, so FTS5
// operators in user input are treated as plain words. Hits are ordered by
// bm25; Score is the negated bm25 value, higher is better.
func (s *Store) SearchText(ctx context.Context, query string, limit int) ([]*Hit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	match := SanitizeQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+hitColumns+`, bm25(chunks_fts)
		 FROM chunks_fts
		 JOIN chunks c ON chunks_fts.rowid = c.id
		 JOIN documents d ON c.document_id = d.id
		 WHERE chunks_fts MATCH ?
		 ORDER BY bm25(chunks_fts)
		 LIMIT ?`,
		match, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("FTS search: %w", err)
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		var rank float64
		hit, err := scanHit(rows, &rank)
		if err != nil {
			return nil, fmt.Errorf("scanning FTS result: %w", err)
		}
		hit.Score = -rank
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// SearchVector ranks the embeddings stored under model by cosine similarity
// to vec and returns the best limit hits. Vectors of other models or of a
// different dimension are skipped.
func (s *Store) SearchVector(ctx context.Context, model string, vec []float32, limit int) ([]*Hit, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+hitColumns+`, e.vector
		 FROM embeddings e
		 JOIN chunks c ON c.document_id = e.document_id AND c.chunk_id = e.chunk_id
		 JOIN documents d ON c.document_id = d.id
		 WHERE e.model = ?`, model)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		var blob []byte
		hit, err := scanHit(rows, &blob)
		if err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		stored := bytesToFloat32(blob)
		if len(stored) != len(vec) {
			continue
		}
		hit.Score = cosineSimilarity(vec, stored)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// SanitizeQuery turns free text into an FTS5 query of quoted OR-ed terms.
// Terms are runs of letters and digits; everything else separates them.
func SanitizeQuery(query string) string {
	terms := strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func scanHit(rows *sql.Rows, extra any) (*Hit, error) {
	var (
		hit       Hit
		treatment string
		tags      string
	)
	c := &hit.Chunk
	if err := rows.Scan(&c.ID, &c.Text, &c.Type, &c.Number, &c.Rank, &c.Context,
		&c.Page, &c.CharLength, &c.IsPartial, &treatment, &tags,
		&hit.DocumentID, &hit.DocumentName, extra); err != nil {
		return nil, err
	}
	c.Treatment = chunk.Treatment(treatment)
	if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", c.ID, err)
	}
	return &hit, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32ToBytes encodes a vector as little-endian float32s.
func float32ToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func bytesToFloat32(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
