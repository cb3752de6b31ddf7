package ranking

import (
	"sort"
	"time"

	"github.com/okian/rota/internal/domain/model"
	"golang.org/x/text/collate"
)

// Scored is a candidate with its features, score and (after Rank) rank.
type Scored struct {
	Candidate
	TotalCount int
	RoleCount  int
	GapDays    int
	// LastAt is nil when there is no participation before the event.
	LastAt *time.Time
	Score  float64
	Rank   int
}

// Rank partitions candidates by role, orders each partition and assigns
// 1-based ranks. The order is total as long as usernames are unique per role.
func Rank(cands []Scored, coll *collate.Collator) map[model.Role][]Scored {
	out := make(map[model.Role][]Scored, len(model.Roles()))
	for _, r := range model.Roles() {
		out[r] = []Scored{}
	}
	for _, c := range cands {
		out[c.Role] = append(out[c.Role], c)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j], coll) })
		for i := range list {
			list[i].Rank = i + 1
		}
	}
	return out
}

// less orders by score, role count, total count ascending, then gap
// descending, then username.
func less(a, b Scored, coll *collate.Collator) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if a.RoleCount != b.RoleCount {
		return a.RoleCount < b.RoleCount
	}
	if a.TotalCount != b.TotalCount {
		return a.TotalCount < b.TotalCount
	}
	if a.GapDays != b.GapDays {
		return a.GapDays > b.GapDays
	}
	return lessUsername(a.Username, b.Username, coll)
}

func lessUsername(a, b string, coll *collate.Collator) bool {
	if coll != nil {
		if c := coll.CompareString(a, b); c != 0 {
			return c < 0
		}
	}
	// collation may fold distinct names together
	return a < b
}
