package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/mlehmk/fabula/model"
)

// FormatEventText builds the text that gets embedded for an event: the
// filled roles in a fixed order, falling back to the sentence text when no
// role is filled.
func FormatEventText(event *model.Event) string {
	var parts []string
	add := func(label string, value *string) {
		if value != nil && *value != "" {
			parts = append(parts, label+": "+*value)
		}
	}
	add("Actor", event.Roles.Agent)
	add("Action", &event.Action)
	add("Target", event.Roles.Patient)
	add("Instrument", event.Roles.Instrument)
	add("Beneficiary", event.Roles.Beneficiary)
	add("Location", event.Roles.Location)
	add("Time", event.Roles.Time)

	if len(parts) == 0 {
		return event.Text
	}
	return strings.Join(parts, "; ") + "."
}

// norm returns the Euclidean norm of a vector, clamped to 1 for the zero
// vector so that similarity against it is zero instead of NaN.
func norm(vector []float32) float64 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return 1
	}
	return n
}

// CosineSimilarity computes the cosine similarity of two vectors.
// Zero vectors yield similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (norm(a) * norm(b))
}

// SimilarityMatrix computes the pairwise cosine similarity of all vectors.
func SimilarityMatrix(vectors [][]float32) [][]float64 {
	matrix := make([][]float64, len(vectors))
	for i := range vectors {
		matrix[i] = make([]float64, len(vectors))
		for j := range vectors {
			if j < i {
				matrix[i][j] = matrix[j][i]
				continue
			}
			matrix[i][j] = CosineSimilarity(vectors[i], vectors[j])
		}
	}
	return matrix
}

// round4 rounds to 4 decimal digits.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Neighbors computes the ranked neighbor list of every vector: the top K
// other vectors with cosine similarity at or above threshold, descending,
// with similarities rounded to 4 digits. An event is never its own neighbor.
func Neighbors(ids []string, vectors [][]float32, topK int, threshold float64) map[string][]model.SemanticNeighbor {
	matrix := SimilarityMatrix(vectors)
	neighbors := make(map[string][]model.SemanticNeighbor, len(ids))

	for i, id := range ids {
		candidates := make([]model.SemanticNeighbor, 0, len(ids)-1)
		for j, other := range ids {
			if j == i || matrix[i][j] < threshold {
				continue
			}
			candidates = append(candidates, model.SemanticNeighbor{
				EventID:    other,
				Similarity: round4(matrix[i][j]),
			})
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].Similarity > candidates[b].Similarity
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		neighbors[id] = candidates
	}

	return neighbors
}
