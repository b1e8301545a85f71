package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a UNION ALL over boards and pages using plainto_tsquery and
// ts_rank, with ts_headline for page snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	dataSQL, countSQL, args := buildFTSQuery(q)
	if dataSQL == "" {
		return nil, 0, nil
	}

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.BoardID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

func buildFTSQuery(q Query) (dataSQL, countSQL string, args []any) {
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args = []any{q.Text}
	boardFilter := ""
	if q.FilterBoardID != "" {
		args = append(args, q.FilterBoardID)
		boardFilter = fmt.Sprintf(" = $%d", len(args))
	}

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultBoard {
		where := "b.fts @@ " + tsQuery
		if boardFilter != "" {
			where += " AND b.id" + boardFilter
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'board'::text AS type, b.id, b.title, ''::text AS snippet, b.id AS board_id,
				ts_rank(b.fts, %s) AS rank
			FROM boards b
			WHERE %s`, tsQuery, where))
	}
	if q.FilterType == "" || q.FilterType == ResultPage {
		where := "p.fts @@ " + tsQuery
		if boardFilter != "" {
			where += " AND p.board_id" + boardFilter
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'page'::text AS type, p.id, p.name AS title,
				ts_headline('english', coalesce(p.search_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				p.board_id,
				ts_rank(p.fts, %s) AS rank
			FROM pages p
			WHERE %s`, tsQuery, tsQuery, where))
	}
	if len(subQueries) == 0 {
		return "", "", nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL = fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL = fmt.Sprintf(`SELECT type, id, title, snippet, board_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)
	return dataSQL, countSQL, args
}

// LoadAllRecords returns every board and page for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]BoardRecord, []PageRecord, error) {
	boardRows, err := p.db.QueryContext(ctx, `SELECT id, title, owner_id FROM boards`)
	if err != nil {
		return nil, nil, fmt.Errorf("load boards: %w", err)
	}
	defer boardRows.Close()

	boards := make([]BoardRecord, 0)
	for boardRows.Next() {
		var b BoardRecord
		if err := boardRows.Scan(&b.ID, &b.Title, &b.OwnerID); err != nil {
			return nil, nil, fmt.Errorf("scan board: %w", err)
		}
		boards = append(boards, b)
	}
	if err := boardRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate boards: %w", err)
	}

	pageRows, err := p.db.QueryContext(ctx, `SELECT id, board_id, name, search_text FROM pages`)
	if err != nil {
		return nil, nil, fmt.Errorf("load pages: %w", err)
	}
	defer pageRows.Close()

	pages := make([]PageRecord, 0)
	for pageRows.Next() {
		var r PageRecord
		if err := pageRows.Scan(&r.ID, &r.BoardID, &r.Name, &r.Text); err != nil {
			return nil, nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, r)
	}
	if err := pageRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate pages: %w", err)
	}
	return boards, pages, nil
}
