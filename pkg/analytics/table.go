package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/sudorandom/attack-map/pkg/attack"
)

// SortField is a sortable column of the attack table.
type SortField string

const (
	SortType     SortField = "type"
	SortOrigin   SortField = "origin"
	SortTarget   SortField = "target"
	SortProtocol SortField = "protocol"
	SortTime     SortField = "time"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the attack table's current ordering. The zero value is
// normalised to newest first.
type SortState struct {
	Field     SortField
	Direction Direction
}

// DefaultSort is newest first.
var DefaultSort = SortState{Field: SortTime, Direction: Desc}

// Click returns the state after clicking a column header: the same column
// flips direction, a new column starts descending.
func (s SortState) Click(field SortField) SortState {
	if field == s.Field {
		if s.Direction == Asc {
			return SortState{Field: field, Direction: Desc}
		}
		return SortState{Field: field, Direction: Asc}
	}
	return SortState{Field: field, Direction: Desc}
}

func textKey(ev attack.Event, f SortField) string {
	switch f {
	case SortType:
		return string(ev.Type)
	case SortOrigin:
		return ev.OriginCountry
	case SortTarget:
		return ev.TargetCountry
	case SortProtocol:
		return string(ev.Protocol)
	}
	return ""
}

// SortTable returns a sorted copy of events. Time sorts chronologically
// with unparseable timestamps last; other columns compare text
// case-insensitively. The sort is stable.
func SortTable(events []attack.Event, s SortState) []attack.Event {
	if s.Field == "" {
		s = DefaultSort
	}
	out := append([]attack.Event(nil), events...)
	desc := s.Direction != Asc

	if s.Field == SortTime {
		type timed struct {
			ev attack.Event
			t  time.Time
			ok bool
		}
		rows := make([]timed, len(out))
		for i, ev := range out {
			t, ok := ev.Time()
			rows[i] = timed{ev, t, ok}
		}
		sort.SliceStable(rows, func(a, b int) bool {
			ra, rb := rows[a], rows[b]
			if ra.ok != rb.ok {
				return ra.ok
			}
			if desc {
				return ra.t.After(rb.t)
			}
			return ra.t.Before(rb.t)
		})
		for i := range rows {
			out[i] = rows[i].ev
		}
		return out
	}

	sort.SliceStable(out, func(a, b int) bool {
		ka := strings.ToLower(textKey(out[a], s.Field))
		kb := strings.ToLower(textKey(out[b], s.Field))
		if desc {
			return ka > kb
		}
		return ka < kb
	})
	return out
}
