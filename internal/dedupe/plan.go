package dedupe

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/photo-dedup/internal/similarity"
)

// ErrKeeperTargeted means a plan would delete the file it keeps.
var ErrKeeperTargeted = errors.New("keeper is a delete candidate")

// Plan is the decision set for one threshold: every cluster, its keeper and
// the files that would be removed.
type Plan struct {
	Threshold int                  `json:"threshold"`
	Linkage   string               `json:"linkage"`
	Clusters  []similarity.Cluster `json:"clusters"`
	ToDelete  []string             `json:"to_delete"`
	ToKeep    []string             `json:"to_keep"`
}

// BuildPlan clusters the matrix at exactly threshold and applies the policy.
// ToKeep[i] is the keeper of Clusters[i].
func BuildPlan(m *similarity.Matrix, threshold int, linkage similarity.Linkage, policy Policy) *Plan {
	return newPlan(threshold, linkage, similarity.Resolve(m.Edges(threshold), linkage), policy)
}

func newPlan(threshold int, linkage similarity.Linkage, clusters []similarity.Cluster, policy Policy) *Plan {
	p := &Plan{
		Threshold: threshold,
		Linkage:   linkage.String(),
		Clusters:  make([]similarity.Cluster, 0, len(clusters)),
		ToDelete:  make([]string, 0, similarity.DeleteCount(clusters)),
		ToKeep:    make([]string, 0, len(clusters)),
	}
	for _, c := range clusters {
		keeper := policy.Keeper(c)
		p.Clusters = append(p.Clusters, c)
		p.ToKeep = append(p.ToKeep, keeper)
		for _, id := range c {
			if id != keeper {
				p.ToDelete = append(p.ToDelete, id)
			}
		}
	}
	return p
}

// Validate checks that no keeper is scheduled for deletion and that each
// cluster keeps exactly one member.
func (p *Plan) Validate() error {
	if len(p.ToKeep) != len(p.Clusters) {
		return fmt.Errorf("plan has %d keepers for %d clusters", len(p.ToKeep), len(p.Clusters))
	}
	keep := make(map[string]bool, len(p.ToKeep))
	for _, k := range p.ToKeep {
		keep[k] = true
	}
	for _, d := range p.ToDelete {
		if keep[d] {
			return fmt.Errorf("%w: %s", ErrKeeperTargeted, d)
		}
	}
	return nil
}
