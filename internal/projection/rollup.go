package projection

import "github.com/aevon-lab/jfrtel/internal/aggregation"

// rollupTotals sums the counters of every lane.
func rollupTotals(lanes []aggregation.LaneStats) Totals {
	totals := Totals{Lanes: len(lanes)}
	for _, l := range lanes {
		totals.LiveKeys += l.LiveKeys
		totals.Queued += l.Queued
		totals.Processed += l.Processed
		totals.Rejected += l.Rejected
		totals.BufferedEvents += l.BufferedEvents
	}
	return totals
}

// findLane returns the stats of eventName.
func findLane(lanes []aggregation.LaneStats, eventName string) (aggregation.LaneStats, bool) {
	for _, l := range lanes {
		if l.EventName == eventName {
			return l, true
		}
	}
	return aggregation.LaneStats{}, false
}
