package refuge

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// ErrDirectoryUnavailable is returned when the refuge catalog cannot be
// fetched or parsed. Nothing meaningful can run without a directory, so
// callers treat this as fatal for the session.
var ErrDirectoryUnavailable = errors.New("refuge directory unavailable")

// Refuge is one hut on the trail. The ID is the number the booking site
// embeds in the refuge page URL (the digits after "refuge_i").
type Refuge struct {
	ID   int
	Name string
}

// Unknown builds a placeholder for an id the directory does not know, so a
// stale plan entry still renders as something identifiable.
func Unknown(id int) Refuge {
	return Refuge{ID: id, Name: fmt.Sprintf("Unknown refuge (%d)", id)}
}

// Directory is a read-only snapshot of the refuge catalog. It never mutates
// after construction, so concurrent readers need no locking.
type Directory struct {
	ordered []Refuge
	byID    map[int]Refuge
}

// NewDirectory builds a snapshot from the given refuges, sorted by name.
// When two entries share an id the first one wins; the duplicate is logged
// and dropped so a snapshot never holds conflicting records.
func NewDirectory(refuges []Refuge) *Directory {
	byID := make(map[int]Refuge, len(refuges))
	ordered := make([]Refuge, 0, len(refuges))
	for _, r := range refuges {
		if prev, ok := byID[r.ID]; ok {
			log.Warn().Int("id", r.ID).Str("kept", prev.Name).Str("dropped", r.Name).
				Msg("duplicate refuge id in catalog")
			continue
		}
		byID[r.ID] = r
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })
	return &Directory{ordered: ordered, byID: byID}
}

// ByID looks up a refuge by id.
func (d *Directory) ByID(id int) (Refuge, bool) {
	r, ok := d.byID[id]
	return r, ok
}

// All returns the refuges in directory order (sorted by name). The slice is
// a copy; callers may reorder it freely.
func (d *Directory) All() []Refuge {
	out := make([]Refuge, len(d.ordered))
	copy(out, d.ordered)
	return out
}

func (d *Directory) Len() int {
	return len(d.ordered)
}
