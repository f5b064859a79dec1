package similarity

import (
	"fmt"
	"sort"
	"strings"
)

// Cluster is a sorted set of at least two identifiers.
type Cluster []string

// Linkage decides how edges turn into clusters.
type Linkage int

const (
	// LinkageChain groups by transitive closure: A~B and B~C puts A, B and C
	// together even when A and C alone exceed the threshold.
	LinkageChain Linkage = iota
	// LinkageClique only groups identifiers that are all pairwise within the threshold.
	LinkageClique
)

func (l Linkage) String() string {
	switch l {
	case LinkageChain:
		return "chain"
	case LinkageClique:
		return "clique"
	default:
		return fmt.Sprintf("linkage(%d)", int(l))
	}
}

// ParseLinkage parses "chain" (also "" and "transitive") or "clique".
func ParseLinkage(s string) (Linkage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "chain", "transitive":
		return LinkageChain, nil
	case "clique", "complete":
		return LinkageClique, nil
	default:
		return LinkageChain, fmt.Errorf("unknown linkage %q (want chain or clique)", s)
	}
}

// Resolve partitions the graph described by edges into clusters. Nodes are
// visited in sorted order, so the result is fully determined by the edge set:
// members are sorted and clusters are ordered by their smallest member.
// Singletons are dropped.
func Resolve(edges []Edge, linkage Linkage) []Cluster {
	adj := adjacency(edges)
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var clusters []Cluster
	visited := make(map[string]bool, len(nodes))
	for _, start := range nodes {
		if visited[start] {
			continue
		}
		component := bfs(adj, start, visited)
		if linkage == LinkageClique {
			clusters = append(clusters, cliques(adj, component)...)
		} else if len(component) > 1 {
			clusters = append(clusters, component)
		}
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}

// adjacency builds the implicit undirected graph as id -> set of neighbours.
func adjacency(edges []Edge) map[string]map[string]bool {
	adj := make(map[string]map[string]bool)
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]bool)
		}
		adj[a][b] = true
	}
	for _, e := range edges {
		if e.A == e.B {
			continue
		}
		link(e.A, e.B)
		link(e.B, e.A)
	}
	return adj
}

func sortedNeighbours(adj map[string]map[string]bool, n string) []string {
	out := make([]string, 0, len(adj[n]))
	for nb := range adj[n] {
		out = append(out, nb)
	}
	sort.Strings(out)
	return out
}

// bfs returns the sorted connected component containing start.
func bfs(adj map[string]map[string]bool, start string, visited map[string]bool) Cluster {
	queue := []string{start}
	visited[start] = true
	var comp Cluster
	for head := 0; head < len(queue); head++ {
		curr := queue[head]
		comp = append(comp, curr)
		for _, nb := range sortedNeighbours(adj, curr) {
			if !visited[nb] {
				visited[nb] = true
				queue = append(queue, nb)
			}
		}
	}
	sort.Strings(comp)
	return comp
}

// cliques greedily splits a sorted component into groups whose members are
// all pairwise adjacent. The first unassigned node seeds a group and every
// later node joins it if it is adjacent to all current members.
func cliques(adj map[string]map[string]bool, component Cluster) []Cluster {
	var out []Cluster
	assigned := make(map[string]bool, len(component))
	for i, seed := range component {
		if assigned[seed] {
			continue
		}
		assigned[seed] = true
		group := Cluster{seed}
		for _, cand := range component[i+1:] {
			if assigned[cand] {
				continue
			}
			joins := true
			for _, member := range group {
				if !adj[cand][member] {
					joins = false
					break
				}
			}
			if joins {
				assigned[cand] = true
				group = append(group, cand)
			}
		}
		if len(group) > 1 {
			out = append(out, group)
		}
	}
	return out
}

// DeleteCount returns Σ(len(c) - 1), the number of files a partition would remove.
func DeleteCount(clusters []Cluster) int {
	n := 0
	for _, c := range clusters {
		n += len(c) - 1
	}
	return n
}
