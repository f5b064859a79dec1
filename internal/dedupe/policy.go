package dedupe

import (
	"path/filepath"
	"unicode/utf8"

	"github.com/kozaktomas/photo-dedup/internal/similarity"
)

// Policy picks the single member of a cluster that is kept.
type Policy interface {
	Keeper(c similarity.Cluster) string
}

// ShortestName keeps the member with the shortest file name. Shorter names
// are usually the original capture rather than an edited or exported copy
// ("IMG_0001.jpg" vs "IMG_0001 (1).jpg"). Ties go to the lexicographically
// smallest name, then the smallest full identifier.
type ShortestName struct{}

func (ShortestName) Keeper(c similarity.Cluster) string {
	if len(c) == 0 {
		return ""
	}
	best := c[0]
	for _, id := range c[1:] {
		if shorterName(id, best) {
			best = id
		}
	}
	return best
}

func shorterName(a, b string) bool {
	na, nb := filepath.Base(a), filepath.Base(b)
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	if la != lb {
		return la < lb
	}
	if na != nb {
		return na < nb
	}
	return a < b
}
