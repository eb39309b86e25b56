package partition

import "hash/fnv"

// Count is the fixed number of logical partitions of stored summaries.
// Never changes after initial deployment.
const Count = 256

// SeriesKey identifies one summary series: a rule name plus the rendered
// grouping attributes of its points.
func SeriesKey(name, groupKey string) string {
	return name + "|" + groupKey
}

// ForSeries returns the partition of a summary series. Summaries are
// partitioned by series rather than by window, so every window of one
// series lands in the same partition and a range scan over a series' history
// reads a single partition.
func ForSeries(name, groupKey string) int {
	return For(SeriesKey(name, groupKey))
}

// For returns the partition ID for a key using FNV-32a.
// The same key always maps to the same partition.
func For(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % Count)
}
