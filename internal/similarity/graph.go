// Package similarity builds the pairwise Hamming-distance graph over a
// fingerprint map and partitions it into duplicate clusters.
package similarity

import (
	"fmt"
	"sort"

	"github.com/corona10/goimagehash"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
)

// Edge connects two identifiers whose fingerprints are within a threshold.
// A is always lexicographically smaller than B.
type Edge struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Distance int    `json:"distance"`
}

// Matrix holds every pairwise distance of a fingerprint map. It is computed
// once and can then be cut at any number of thresholds.
type Matrix struct {
	ids   []string
	pairs []Edge // all n(n-1)/2 pairs, ordered by (A, B)
}

// NewMatrix computes the full pairwise distance matrix, O(n²) comparisons.
// It fails with fingerprint.ErrHashWidthMismatch if widths differ.
func NewMatrix(fps map[string]*goimagehash.ExtImageHash) (*Matrix, error) {
	ids := make([]string, 0, len(fps))
	for id := range fps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m := &Matrix{ids: ids}
	if len(ids) < 2 {
		return m, nil
	}

	m.pairs = make([]Edge, 0, len(ids)*(len(ids)-1)/2)
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			d, err := fingerprint.Distance(fps[ids[i]], fps[ids[j]])
			if err != nil {
				return nil, fmt.Errorf("comparing %s and %s: %w", ids[i], ids[j], err)
			}
			m.pairs = append(m.pairs, Edge{A: ids[i], B: ids[j], Distance: d})
		}
	}
	return m, nil
}

// IDs returns the sorted identifiers the matrix was built from.
func (m *Matrix) IDs() []string {
	return m.ids
}

// Len returns the number of identifiers.
func (m *Matrix) Len() int {
	return len(m.ids)
}

// Edges returns the pairs with distance <= threshold.
func (m *Matrix) Edges(threshold int) []Edge {
	var edges []Edge
	for _, p := range m.pairs {
		if p.Distance <= threshold {
			edges = append(edges, p)
		}
	}
	return edges
}

// Edges is a convenience for a single threshold evaluation.
func Edges(fps map[string]*goimagehash.ExtImageHash, threshold int) ([]Edge, error) {
	m, err := NewMatrix(fps)
	if err != nil {
		return nil, err
	}
	return m.Edges(threshold), nil
}
