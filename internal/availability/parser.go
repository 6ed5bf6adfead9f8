package availability

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Parser is the single boundary that understands the remote response
// shape. The site's encoding is an unversioned contract; when it drifts,
// this is the only thing that should need touching.
type Parser interface {
	// Parse interprets a raw payload fetched for base into per-day
	// snapshots. One payload may cover a window of days around base.
	Parse(base Date, payload []byte) (map[Date]Snapshot, error)
}

// planningParser reads the site's json-planning-refuge encoding: a
// JSONP-padded object whose "planning" array holds one item per day, with
// "d" the day offset from the requested date, "s" the places left (null
// when the site cannot say) and "f" set to 1 when the refuge is closed.
// Unrecognized fields are ignored rather than treated as errors.
type planningParser struct{}

func NewPlanningParser() Parser {
	return planningParser{}
}

type planningItem struct {
	D int  `json:"d"`
	S *int `json:"s"`
	F int  `json:"f"`
}

type planningResponse struct {
	Planning []planningItem `json:"planning"`
}

func (planningParser) Parse(base Date, payload []byte) (map[Date]Snapshot, error) {
	trimmed := strings.Trim(string(payload), "()[]\r\n ;")
	var resp planningResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return nil, fmt.Errorf("parsing planning payload: %w", err)
	}
	if len(resp.Planning) == 0 {
		return nil, fmt.Errorf("planning payload holds no days")
	}

	days := make(map[Date]Snapshot, len(resp.Planning))
	for _, item := range resp.Planning {
		snap := Snapshot{
			PlacesKnown: item.S != nil,
			Closed:      item.F == 1,
			Bookable:    true,
		}
		if item.S != nil {
			snap.Places = *item.S
		}
		days[base.AddDays(item.D)] = snap
	}
	return days, nil
}
