package entity

// Frontier states reported for a URL.
const (
	StatusPending = "pending"
	StatusVisited = "visited"
	StatusUnknown = "unknown"
)

type CrawlStatus struct {
	URL           string
	CurrentStatus string // "pending", "visited", "unknown"
	QueueLength   int64
}
