// Package main is the polite-crawler command.
//
// Usage:
//
//	crawler            run the crawler and the admin API
//	crawler fetch URL  fetch one page the way the crawler would
//	crawler robots URL show the robots.txt verdict for a URL
package main

func main() {
	Execute()
}
