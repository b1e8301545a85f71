// Package search indexes board titles and page text. Meilisearch serves
// queries while it is healthy; PostgreSQL full-text search is the fallback.
package search

import "context"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultBoard ResultType = "board"
	ResultPage  ResultType = "page"
)

// ParseResultType returns the filter for a query string value; empty and
// unknown values both mean all types.
func ParseResultType(raw string) (ResultType, bool) {
	switch ResultType(raw) {
	case "":
		return "", true
	case ResultBoard, ResultPage:
		return ResultType(raw), true
	default:
		return "", false
	}
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	BoardID string     `json:"boardId"`
}

// Query describes a search request.
type Query struct {
	Text          string
	FilterType    ResultType // empty = all types
	FilterBoardID string
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

// BoardRecord is the data we index for a board.
type BoardRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	OwnerID string `json:"ownerId"`
}

// PageRecord is the data we index for a page: its name plus the text of its
// text and sticky shapes.
type PageRecord struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
	Text    string `json:"text"`
}
