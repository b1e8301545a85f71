package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []Result
	total   int
	err     error
	got     Query
}

func (f *fakeSearcher) Search(_ context.Context, q Query) ([]Result, int, error) {
	f.got = q
	return f.results, f.total, f.err
}

func (f *fakeSearcher) Healthy() bool { return true }

func TestServiceFallsBackToPgFTS(t *testing.T) {
	pg := &fakeSearcher{results: []Result{{Type: ResultPage, ID: "p1", BoardID: "b1"}}, total: 1}
	svc := NewService(nil, pg, nil)

	resp := svc.Search(context.Background(), Query{Text: "roadmap", FilterBoardID: "b1"})
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "roadmap", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "b1", pg.got.FilterBoardID)
}

func TestServiceSearchErrorReturnsEmptyResults(t *testing.T) {
	svc := NewService(nil, &fakeSearcher{err: errors.New("boom")}, nil)
	resp := svc.Search(context.Background(), Query{Text: "x"})
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestServiceIndexWithoutMeiliIsNoop(t *testing.T) {
	svc := NewService(nil, nil, nil)
	svc.IndexBoard(BoardRecord{ID: "b1"})
	svc.IndexPage(PageRecord{ID: "p1"})
	svc.DeleteBoard("b1")
	svc.DeletePage("p1")
	svc.ReindexAllFromPG(context.Background())
	assert.Empty(t, svc.Search(context.Background(), Query{Text: "x"}).Results)
}

func TestParseResultType(t *testing.T) {
	for raw, want := range map[string]ResultType{"": "", "board": ResultBoard, "page": ResultPage} {
		got, ok := ParseResultType(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	_, ok := ParseResultType("thread")
	assert.False(t, ok)
}

func TestBuildFTSQueryFilters(t *testing.T) {
	data, count, args := buildFTSQuery(Query{Text: "plan", FilterType: ResultPage, FilterBoardID: "b1", Limit: 5, Offset: 10})
	assert.Contains(t, data, "FROM pages p")
	assert.NotContains(t, data, "FROM boards b")
	assert.Contains(t, data, "p.board_id = $2")
	assert.Contains(t, data, "LIMIT 5 OFFSET 10")
	assert.Contains(t, count, "SELECT count(*)")
	assert.Equal(t, []any{"plan", "b1"}, args)

	data, _, args = buildFTSQuery(Query{Text: "plan"})
	assert.Contains(t, data, "FROM boards b")
	assert.Contains(t, data, "FROM pages p")
	assert.Contains(t, data, "LIMIT 20 OFFSET 0")
	assert.Len(t, args, 1)
}

func TestBuildQueriesScopesBoardFilter(t *testing.T) {
	queries := buildQueries(Query{Text: "plan", FilterBoardID: "b1"})
	require.Len(t, queries, 2)
	assert.Equal(t, idxBoards, queries[0].IndexUID)
	assert.Equal(t, []string{`id = "b1"`}, queries[0].Filter)
	assert.Equal(t, []string{`boardId = "b1"`}, queries[1].Filter)
	assert.Equal(t, int64(20), queries[1].Limit)

	queries = buildQueries(Query{Text: "plan", FilterType: ResultBoard})
	require.Len(t, queries, 1)
	assert.Nil(t, queries[0].Filter)
}

func TestHitToResultPrefersHighlights(t *testing.T) {
	hit := meili.Hit{
		"id":         json.RawMessage(`"p1"`),
		"boardId":    json.RawMessage(`"b1"`),
		"name":       json.RawMessage(`"Sprint"`),
		"text":       json.RawMessage(`"ship the roadmap"`),
		"_formatted": json.RawMessage(`{"name":"Sprint","text":"ship the <mark>roadmap</mark>"}`),
	}
	r := hitToResult(hit, ResultPage)
	assert.Equal(t, Result{Type: ResultPage, ID: "p1", Title: "Sprint", Snippet: "ship the <mark>roadmap</mark>", BoardID: "b1"}, r)
}
