package request

type SubmitCrawlRequest struct {
	URLs       []string `json:"urls"`
	ForceCrawl bool     `json:"force_crawl"`
}
