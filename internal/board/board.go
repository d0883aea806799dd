// Package board builds the aggregated segment view behind the dispatcher
// console: one merged, filtered, sorted collection with tab counts.
package board

import (
	"sort"
	"strings"

	"github.com/freightops/haulage-console/internal/lifecycle"
	"github.com/freightops/haulage-console/internal/models"
)

// FilterMode selects which tab of the board is shown.
type FilterMode string

const (
	FilterAll        FilterMode = "all"
	FilterNeedAction FilterMode = "need-action"
	FilterAlert      FilterMode = "alert"
)

// ParseFilterMode maps a query value onto a mode, defaulting to all.
func ParseFilterMode(raw string) FilterMode {
	switch FilterMode(raw) {
	case FilterNeedAction:
		return FilterNeedAction
	case FilterAlert:
		return FilterAlert
	default:
		return FilterAll
	}
}

// Query is one board request: a tab plus an optional free-text search.
type Query struct {
	Mode FilterMode
	Text string
}

// Item is one flagged segment ready for display.
type Item struct {
	Segment       models.Segment  `json:"segment"`
	Flags         lifecycle.Flags `json:"flags"`
	Stage         lifecycle.Stage `json:"stage"`
	Place         string          `json:"place"`
	NextPlace     string          `json:"next_place"`
	Assignee      string          `json:"assignee,omitempty"`
	ShipmentTitle string          `json:"shipment_title,omitempty"`
}

// View is the board payload. Counts are computed over the unfiltered merged
// collection so tab badges hold steady regardless of the active filter.
type View struct {
	Items           []Item `json:"items"`
	NeedActionCount int    `json:"need_action_count"`
	AlertCount      int    `json:"alert_count"`
}

type mergeKey struct {
	shipmentID string
	order      int
}

// Merge combines shipment-derived segments with a supplemental list into one
// de-duplicated collection keyed by (shipmentID, order). Supplemental entries
// win on collision; segments only the primary list knows survive. Relative
// order is preserved: primary order first, then unseen supplemental entries.
func Merge(primary, supplemental []models.Segment) []models.Segment {
	index := make(map[mergeKey]int, len(primary))
	merged := make([]models.Segment, 0, len(primary)+len(supplemental))

	for _, seg := range primary {
		key := mergeKey{seg.ShipmentID, seg.Order}
		if at, ok := index[key]; ok {
			merged[at] = seg
			continue
		}
		index[key] = len(merged)
		merged = append(merged, seg)
	}
	for _, seg := range supplemental {
		key := mergeKey{seg.ShipmentID, seg.Order}
		if at, ok := index[key]; ok {
			merged[at] = seg
			continue
		}
		index[key] = len(merged)
		merged = append(merged, seg)
	}
	return merged
}

// Build assembles the board view: derive flags for every merged segment,
// compute the unfiltered counts, then filter and sort for the requested tab.
// shipments provides per-shipment context (current leg, title) and may be
// missing entries.
func Build(engine *lifecycle.Engine, segments []models.Segment, shipments map[string]*models.Shipment, query Query) View {
	items := make([]Item, 0, len(segments))
	view := View{}

	for _, seg := range segments {
		shipment := shipments[seg.ShipmentID]
		flags := engine.Derive(&seg, shipment)
		if flags.NeedToAction {
			view.NeedActionCount++
		}
		if flags.HasAlerts {
			view.AlertCount++
		}
		item := Item{
			Segment:   seg,
			Flags:     flags,
			Stage:     engine.ProjectSegment(&seg, shipment),
			Place:     seg.Place(),
			NextPlace: seg.NextPlace(),
			Assignee:  seg.AssigneeName(),
		}
		if shipment != nil {
			item.ShipmentTitle = shipment.Title
		}
		items = append(items, item)
	}

	items = filterItems(items, query)
	sortItems(items, query.Mode)
	view.Items = items
	return view
}

func filterItems(items []Item, query Query) []Item {
	kept := items[:0]
	needle := strings.ToLower(strings.TrimSpace(query.Text))

	for _, item := range items {
		switch query.Mode {
		case FilterNeedAction:
			if !item.Flags.NeedToAction {
				continue
			}
		case FilterAlert:
			if !item.Flags.HasAlerts {
				continue
			}
		}
		if needle != "" && !matchesText(item, needle) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func matchesText(item Item, needle string) bool {
	for _, hay := range []string{item.Place, item.NextPlace, item.Assignee, item.ShipmentTitle} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

// sortItems orders items per tab. The sort is stable: ties keep their
// original relative order.
func sortItems(items []Item, mode FilterMode) {
	switch mode {
	case FilterAll:
		sort.SliceStable(items, func(i, j int) bool {
			return allRank(items[i]) < allRank(items[j])
		})
	case FilterAlert:
		sort.SliceStable(items, func(i, j int) bool {
			return alertRank(items[i]) < alertRank(items[j])
		})
	}
	// need-action keeps the original order beyond the filter.
}

func allRank(item Item) int {
	switch {
	case item.Flags.NeedToAction:
		return 0
	case item.Flags.IsCompleted:
		return 1
	default:
		return 2
	}
}

func alertRank(item Item) int {
	switch {
	case item.Flags.HasAlerts && item.Segment.Status == models.StatusCancelled:
		return 0
	case item.Flags.HasAlerts:
		return 1
	default:
		return 2
	}
}
