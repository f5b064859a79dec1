package dedupe

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/corona10/goimagehash"
	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortestName(t *testing.T) {
	tests := []struct {
		name    string
		cluster similarity.Cluster
		want    string
	}{
		{"shorter wins", similarity.Cluster{"a.jpg", "bb.jpg"}, "a.jpg"},
		{"tie is lexicographic", similarity.Cluster{"ab.jpg", "cd.jpg"}, "ab.jpg"},
		{"order does not matter", similarity.Cluster{"cd.jpg", "ab.jpg"}, "ab.jpg"},
		{"edited copy loses", similarity.Cluster{"/x/IMG_0001 (1).jpg", "/x/IMG_0001.jpg", "/x/IMG_0001-edit.jpg"}, "/x/IMG_0001.jpg"},
		{"base name decides, not directory", similarity.Cluster{"/a/very/deep/dir/b.jpg", "/x/ab.jpg"}, "/a/very/deep/dir/b.jpg"},
		{"same base name falls back to full path", similarity.Cluster{"/y/a.jpg", "/x/a.jpg"}, "/x/a.jpg"},
		{"runes, not bytes", similarity.Cluster{"řř.jpg", "abc.jpg"}, "řř.jpg"},
		{"empty", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShortestName{}.Keeper(tc.cluster))
		})
	}
}

func TestThresholds(t *testing.T) {
	got, err := Thresholds(2, 62, 4)
	require.NoError(t, err)
	assert.Len(t, got, 16)
	assert.Equal(t, 2, got[0])
	assert.Equal(t, 62, got[len(got)-1])

	got, err = Thresholds(0, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 8}, got)

	got, err = Thresholds(5, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, got)

	for _, bad := range [][3]int{{-1, 5, 1}, {6, 5, 1}, {0, 5, 0}, {0, 5, -2}} {
		_, err := Thresholds(bad[0], bad[1], bad[2])
		assert.Error(t, err, "%v", bad)
	}
}

// pickEdges returns the edges of an explicit distance table at threshold.
func pickEdges(distances []similarity.Edge, threshold int) []similarity.Edge {
	var out []similarity.Edge
	for _, e := range distances {
		if e.Distance <= threshold {
			out = append(out, e)
		}
	}
	return out
}

func TestPlan_EndToEndScenario(t *testing.T) {
	distances := []similarity.Edge{
		{A: "/w/A.jpg", B: "/w/B.jpg", Distance: 3},
		{A: "/w/A.jpg", B: "/w/C.jpg", Distance: 10},
		{A: "/w/A.jpg", B: "/w/D.jpg", Distance: 99},
		{A: "/w/B.jpg", B: "/w/C.jpg", Distance: 4},
		{A: "/w/B.jpg", B: "/w/D.jpg", Distance: 104},
		{A: "/w/C.jpg", B: "/w/D.jpg", Distance: 101},
	}

	edges := pickEdges(distances, 5)
	require.Len(t, edges, 2)

	p := newPlan(5, similarity.LinkageChain, similarity.Resolve(edges, similarity.LinkageChain), ShortestName{})
	require.NoError(t, p.Validate())

	assert.Equal(t, []similarity.Cluster{{"/w/A.jpg", "/w/B.jpg", "/w/C.jpg"}}, p.Clusters)
	assert.Equal(t, []string{"/w/A.jpg"}, p.ToKeep)
	assert.Equal(t, []string{"/w/B.jpg", "/w/C.jpg"}, p.ToDelete)
	assert.NotContains(t, p.ToDelete, "/w/D.jpg")
	assert.NotContains(t, p.ToKeep, "/w/D.jpg")
}

func TestPlan_ValidateRejectsKeeperInDeleteSet(t *testing.T) {
	p := &Plan{
		Clusters: []similarity.Cluster{{"a.jpg", "b.jpg"}},
		ToKeep:   []string{"a.jpg"},
		ToDelete: []string{"a.jpg"},
	}
	assert.ErrorIs(t, p.Validate(), ErrKeeperTargeted)

	p.ToKeep = nil
	assert.Error(t, p.Validate())
}

func TestPlan_EmptySlicesAreNotNil(t *testing.T) {
	m, err := similarity.NewMatrix(nil)
	require.NoError(t, err)

	p := BuildPlan(m, 10, similarity.LinkageChain, ShortestName{})
	assert.NotNil(t, p.Clusters)
	assert.NotNil(t, p.ToDelete)
	assert.NotNil(t, p.ToKeep)
	assert.Empty(t, p.Clusters)
}

// randomIndex builds n 64-bit fingerprints grouped around a few seeds so that
// sweeps produce non-trivial clusters.
func randomIndex(seed int64, n int) map[string]*goimagehash.ExtImageHash {
	rng := rand.New(rand.NewSource(seed))
	bases := []uint64{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
	fps := make(map[string]*goimagehash.ExtImageHash, n)
	for i := 0; i < n; i++ {
		bits := bases[rng.Intn(len(bases))]
		for j, k := 0, rng.Intn(12); j < k; j++ {
			bits ^= 1 << uint(rng.Intn(64))
		}
		fps[fmt.Sprintf("/set/img_%03d%s.jpg", i, string(rune('a'+rng.Intn(3))))] =
			goimagehash.NewExtImageHash([]uint64{bits}, goimagehash.DHash, 64)
	}
	return fps
}

func TestSweep_Monotonic(t *testing.T) {
	thresholds, err := Thresholds(0, 64, 2)
	require.NoError(t, err)

	for seed := int64(0); seed < 5; seed++ {
		report, err := Calibrator{Linkage: similarity.LinkageChain}.Sweep(randomIndex(seed, 60), thresholds)
		require.NoError(t, err)
		require.Len(t, report.Entries, len(thresholds))
		assert.Equal(t, 60, report.Files)

		prev := -1
		for _, e := range report.Entries {
			assert.GreaterOrEqual(t, e.ProjectedDeletes, prev, "seed %d threshold %d", seed, e.Threshold)
			assert.Equal(t, similarity.DeleteCount(e.Clusters), e.ProjectedDeletes)
			prev = e.ProjectedDeletes
		}
		assert.Equal(t, 59, report.Entries[len(report.Entries)-1].ProjectedDeletes, "everything is within 64 bits")
	}
}

func TestSweep_SortsAndDeduplicatesThresholds(t *testing.T) {
	report, err := Calibrator{}.Sweep(randomIndex(1, 10), []int{8, 2, 8, 4})
	require.NoError(t, err)

	var got []int
	for _, e := range report.Entries {
		got = append(got, e.Threshold)
	}
	assert.Equal(t, []int{2, 4, 8}, got)

	_, ok := report.Entry(4)
	assert.True(t, ok)
	_, ok = report.Entry(5)
	assert.False(t, ok)
}

func TestSweep_WidthMismatch(t *testing.T) {
	fps := map[string]*goimagehash.ExtImageHash{
		"a": goimagehash.NewExtImageHash([]uint64{0}, goimagehash.DHash, 64),
		"b": goimagehash.NewExtImageHash([]uint64{0, 0, 0, 0}, goimagehash.DHash, 256),
	}
	_, err := Calibrator{}.Sweep(fps, []int{1})
	assert.Error(t, err)
}

func TestBuildPlan_KeeperNeverDeletedAndDeterministic(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		fps := randomIndex(seed, 40)
		m, err := similarity.NewMatrix(fps)
		require.NoError(t, err)

		for _, linkage := range []similarity.Linkage{similarity.LinkageChain, similarity.LinkageClique} {
			for threshold := 0; threshold <= 64; threshold += 4 {
				p := BuildPlan(m, threshold, linkage, ShortestName{})
				require.NoError(t, p.Validate())

				for i, c := range p.Clusters {
					assert.GreaterOrEqual(t, len(c), 2)
					assert.Contains(t, c, p.ToKeep[i])
				}
				assert.Len(t, p.ToDelete, similarity.DeleteCount(p.Clusters))

				again := BuildPlan(m, threshold, linkage, ShortestName{})
				assert.Equal(t, p, again)
			}
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	d := config.DedupeConfig{
		HashSize:     16,
		MinThreshold: 2,
		MaxThreshold: 10,
		Step:         4,
		Preprocess:   true,
		Linkage:      "clique",
		Workers:      3,
		Recursive:    true,
		Extensions:   []string{".jpg"},
	}

	opts, err := OptionsFromConfig(d, "/photos")
	require.NoError(t, err)
	assert.Equal(t, "/photos", opts.Dir)
	assert.Equal(t, []int{2, 6, 10}, opts.Thresholds)
	assert.Equal(t, similarity.LinkageClique, opts.Linkage)
	assert.True(t, opts.DryRun)
	assert.True(t, opts.Scan.Recursive)
	assert.Equal(t, 16, opts.Hash.HashSize)
	assert.Equal(t, 3, opts.Hash.Workers)

	d.Delete = true
	opts, err = OptionsFromConfig(d, "/photos")
	require.NoError(t, err)
	assert.False(t, opts.DryRun)

	d.Linkage = "single"
	_, err = OptionsFromConfig(d, "/photos")
	assert.Error(t, err)
}
