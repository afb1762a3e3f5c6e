package memory

import "time"

// TierName identifies one of the three memory tiers.
type TierName string

const (
	// STM is the short-term tier, fed directly by turn summaries.
	STM TierName = "stm"
	// MTM is the medium-term tier, fed by STM consolidation.
	MTM TierName = "mtm"
	// LTM is the long-term tier; it has no next tier and distills into itself.
	LTM TierName = "ltm"
)

// TierOrder lists the tiers from most to least volatile. Consolidation
// checks run in this order so an overflow caused by a lower tier's summary
// is picked up within the same cascade.
var TierOrder = []TierName{STM, MTM, LTM}

// Next returns the tier a consolidated summary lands in. LTM returns itself.
func (t TierName) Next() TierName {
	switch t {
	case STM:
		return MTM
	case MTM:
		return LTM
	default:
		return LTM
	}
}

// Entry is one memory record. IDs are monotonic per tier; order of entries
// within a tier is creation order and is significant (oldest-first
// consolidation).
type Entry struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// tier holds one tier's ordered entries plus its id counter.
type tier struct {
	Entries []Entry `json:"entries"`
	NextID  int64   `json:"next_id"`
}

func (t *tier) append(text string, now time.Time) Entry {
	t.NextID++
	e := Entry{ID: t.NextID, Text: text, CreatedAt: now}
	t.Entries = append(t.Entries, e)
	return e
}
