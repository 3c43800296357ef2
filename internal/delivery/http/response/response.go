package response

import "time"

type SubmitCrawlResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Accepted []string `json:"accepted"`
	Skipped  []string `json:"skipped,omitempty"`
}

// CrawlStatusResponse is a DTO for crawl status, mirroring entity.CrawlStatus
type CrawlStatusResponse struct {
	URL           string `json:"url"`
	CurrentStatus string `json:"current_status"` // "pending", "visited", "unknown"
	QueueLength   int64  `json:"queue_length"`
}

type FailedURLResponse struct {
	URL                  string    `json:"url"`
	FailureReason        string    `json:"failure_reason"`
	ErrorType            string    `json:"error_type"`
	HTTPStatusCode       int       `json:"http_status_code,omitempty"`
	LastAttemptTimestamp time.Time `json:"last_attempt_timestamp"`
	AttemptCount         int       `json:"attempt_count"`
}
