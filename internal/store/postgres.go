package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/ids"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}

func marshalJSON(value any, what string) (string, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(encoded), nil
}

// Users

func (s *PostgresStore) InsertUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Name).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID ids.UserID) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, created_at, updated_at FROM users WHERE id=$1
	`, userID).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM users
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE users SET email=$2, name=$3, updated_at=NOW()
		WHERE id=$1
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Name).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, userID ids.UserID) error {
	return s.deleteByID(ctx, `DELETE FROM users WHERE id=$1`, string(userID), "user")
}

func (s *PostgresStore) deleteByID(ctx context.Context, query, id, what string) error {
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", what, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s rows affected: %w", what, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Boards

const boardColumns = `id, title, owner_id, page_ids, collaborator_ids, settings, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (domain.Board, error) {
	var (
		board                              domain.Board
		pageIDs, collaboratorIDs, settings []byte
		createdAt, updatedAt               time.Time
	)
	if err := row.Scan(&board.ID, &board.Title, &board.OwnerID, &pageIDs, &collaboratorIDs, &settings, &createdAt, &updatedAt); err != nil {
		return domain.Board{}, err
	}
	if err := json.Unmarshal(pageIDs, &board.PageIDs); err != nil {
		return domain.Board{}, fmt.Errorf("decode board pages: %w", err)
	}
	if err := json.Unmarshal(collaboratorIDs, &board.CollaboratorIDs); err != nil {
		return domain.Board{}, fmt.Errorf("decode board collaborators: %w", err)
	}
	board.Settings = domain.DefaultBoardSettings()
	if err := json.Unmarshal(settings, &board.Settings); err != nil {
		return domain.Board{}, fmt.Errorf("decode board settings: %w", err)
	}
	board.CreatedAt = millis(createdAt)
	board.UpdatedAt = millis(updatedAt)
	return board, nil
}

func (s *PostgresStore) InsertBoard(ctx context.Context, board domain.Board) error {
	pageIDs, err := marshalJSON(board.PageIDs, "board pages")
	if err != nil {
		return err
	}
	collaboratorIDs, err := marshalJSON(domain.CollaboratorSet(board.CollaboratorIDs), "board collaborators")
	if err != nil {
		return err
	}
	settings, err := marshalJSON(board.Settings, "board settings")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boards (id, title, owner_id, page_ids, collaborator_ids, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7, $8)
	`, board.ID, board.Title, board.OwnerID, pageIDs, collaboratorIDs, settings, fromMillis(board.CreatedAt), fromMillis(board.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID ids.BoardID) (domain.Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, boardID)
	return scanBoard(row)
}

func (s *PostgresStore) ListBoards(ctx context.Context, ownerID ids.UserID) ([]domain.Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+boardColumns+`
		FROM boards
		WHERE $1='' OR owner_id=$1 OR collaborator_ids ? $1
		ORDER BY updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Board, 0)
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, board domain.Board) error {
	pageIDs, err := marshalJSON(board.PageIDs, "board pages")
	if err != nil {
		return err
	}
	collaboratorIDs, err := marshalJSON(board.CollaboratorIDs, "board collaborators")
	if err != nil {
		return err
	}
	settings, err := marshalJSON(board.Settings, "board settings")
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE boards
		SET title=$2, page_ids=$3::jsonb, collaborator_ids=$4::jsonb, settings=$5::jsonb, updated_at=$6
		WHERE id=$1
	`, board.ID, board.Title, pageIDs, collaboratorIDs, settings, fromMillis(board.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update board rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBoard removes a board. Its pages, comments, and asset records go with
// it through foreign keys.
func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID ids.BoardID) error {
	return s.deleteByID(ctx, `DELETE FROM boards WHERE id=$1`, string(boardID), "board")
}

// Pages

const pageColumns = `id, board_id, name, width, height, layer_ids, viewport, version, content, created_at, updated_at`

func scanPage(row rowScanner) (domain.Page, error) {
	var (
		page                        domain.Page
		layerIDs, viewport, content []byte
		createdAt, updatedAt        time.Time
	)
	if err := row.Scan(&page.ID, &page.BoardID, &page.Name, &page.Width, &page.Height, &layerIDs, &viewport, &page.Version, &content, &createdAt, &updatedAt); err != nil {
		return domain.Page{}, err
	}
	if err := json.Unmarshal(layerIDs, &page.LayerIDs); err != nil {
		return domain.Page{}, fmt.Errorf("decode page layers: %w", err)
	}
	if err := json.Unmarshal(viewport, &page.Viewport); err != nil {
		return domain.Page{}, fmt.Errorf("decode page viewport: %w", err)
	}
	if err := json.Unmarshal(content, &page.Content); err != nil {
		return domain.Page{}, fmt.Errorf("decode page content: %w", err)
	}
	page.CreatedAt = millis(createdAt)
	page.UpdatedAt = millis(updatedAt)
	return page, nil
}

// InsertPage stores a new page and appends it to its board's page order in
// one transaction. A missing board yields sql.ErrNoRows.
func (s *PostgresStore) InsertPage(ctx context.Context, page domain.Page, searchText string) error {
	layerIDs, err := marshalJSON(page.LayerIDs, "page layers")
	if err != nil {
		return err
	}
	viewport, err := marshalJSON(page.Viewport, "page viewport")
	if err != nil {
		return err
	}
	content, err := marshalJSON(page.Content, "page content")
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert page tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE boards SET page_ids = page_ids || jsonb_build_array($2::text), updated_at=NOW()
		WHERE id=$1
	`, page.BoardID, page.ID)
	if err != nil {
		return fmt.Errorf("append board page: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("append board page rows affected: %w", err)
	} else if affected == 0 {
		return sql.ErrNoRows
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (id, board_id, name, width, height, layer_ids, viewport, version, content, search_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9::jsonb, $10, $11, $12)
	`, page.ID, page.BoardID, page.Name, page.Width, page.Height, layerIDs, viewport, page.Version, content, searchText,
		fromMillis(page.CreatedAt), fromMillis(page.UpdatedAt)); err != nil {
		return fmt.Errorf("insert page: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert page: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPage(ctx context.Context, pageID ids.PageID) (domain.Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id=$1`, pageID)
	return scanPage(row)
}

// ListPages returns the pages of a board in the board's page order.
func (s *PostgresStore) ListPages(ctx context.Context, boardID ids.BoardID) ([]domain.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.board_id, p.name, p.width, p.height, p.layer_ids, p.viewport, p.version, p.content, p.created_at, p.updated_at
		FROM pages p
		JOIN boards b ON b.id = p.board_id
		LEFT JOIN LATERAL (
			SELECT ord FROM jsonb_array_elements_text(b.page_ids) WITH ORDINALITY AS e(page_id, ord)
			WHERE e.page_id = p.id
		) o ON TRUE
		WHERE p.board_id=$1
		ORDER BY o.ord NULLS LAST, p.created_at
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return items, nil
}

// UpdatePageMeta writes the metadata columns of a page. Content and version
// are not touched.
func (s *PostgresStore) UpdatePageMeta(ctx context.Context, page domain.Page) error {
	viewport, err := marshalJSON(page.Viewport, "page viewport")
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE pages SET name=$2, width=$3, height=$4, viewport=$5::jsonb, updated_at=$6
		WHERE id=$1
	`, page.ID, page.Name, page.Width, page.Height, viewport, fromMillis(page.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update page rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePage removes a page and drops it from its board's page order. The
// page's operation log is kept.
func (s *PostgresStore) DeletePage(ctx context.Context, pageID ids.PageID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete page tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var boardID string
	if err := tx.QueryRowContext(ctx, `DELETE FROM pages WHERE id=$1 RETURNING board_id`, pageID).Scan(&boardID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("delete page: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE boards SET page_ids = page_ids - $2::text, updated_at=NOW() WHERE id=$1
	`, boardID, pageID); err != nil {
		return fmt.Errorf("remove board page: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete page: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPageState(ctx context.Context, pageID ids.PageID) (PageState, error) {
	var (
		state   PageState
		content []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, version, content FROM pages WHERE id=$1`, pageID).Scan(&state.ID, &state.Version, &content)
	if err != nil {
		return PageState{}, err
	}
	if err := json.Unmarshal(content, &state.Content); err != nil {
		return PageState{}, fmt.Errorf("decode page content: %w", err)
	}
	return state, nil
}

// CommitPatches stores the next content of a page and appends the batch to
// the operation log in one transaction. The update only matches while the
// page is still at in.BaseVersion, so at most one batch commits per version;
// a lost race returns *VersionConflictError with the winning version.
func (s *PostgresStore) CommitPatches(ctx context.Context, in CommitInput) (PageState, error) {
	content, err := marshalJSON(in.Content, "page content")
	if err != nil {
		return PageState{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PageState{}, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		state PageState
		raw   []byte
	)
	err = tx.QueryRowContext(ctx, `
		UPDATE pages
		SET content=$3::jsonb, search_text=$4, version=version+1, updated_at=NOW()
		WHERE id=$1 AND version=$2
		RETURNING id, version, content
	`, in.PageID, in.BaseVersion, content, in.SearchText).Scan(&state.ID, &state.Version, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		var current int
		if err := s.db.QueryRowContext(ctx, `SELECT version FROM pages WHERE id=$1`, in.PageID).Scan(&current); err != nil {
			return PageState{}, err
		}
		return PageState{}, &VersionConflictError{PageID: in.PageID, Current: current}
	}
	if err != nil {
		return PageState{}, fmt.Errorf("update page content: %w", err)
	}
	if err := json.Unmarshal(raw, &state.Content); err != nil {
		return PageState{}, fmt.Errorf("decode page content: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO page_operations (page_id, author_id, version, patches)
		VALUES ($1, $2, $3, $4::json)
	`, in.PageID, in.AuthorID, state.Version, string(in.Patches)); err != nil {
		return PageState{}, fmt.Errorf("insert page operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PageState{}, fmt.Errorf("commit patches: %w", err)
	}
	return state, nil
}

// ListOperations returns committed batches with a version above since, oldest
// first.
func (s *PostgresStore) ListOperations(ctx context.Context, pageID ids.PageID, since, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, author_id, version, patches, created_at
		FROM page_operations
		WHERE page_id=$1 AND version > $2
		ORDER BY version
		LIMIT $3
	`, pageID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list page operations: %w", err)
	}
	defer rows.Close()

	items := make([]Operation, 0)
	for rows.Next() {
		var (
			item    Operation
			patches []byte
		)
		if err := rows.Scan(&item.ID, &item.PageID, &item.AuthorID, &item.Version, &patches, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan page operation: %w", err)
		}
		item.Patches = json.RawMessage(patches)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page operations: %w", err)
	}
	return items, nil
}

// Comments

func scanComment(row rowScanner) (domain.Comment, error) {
	var (
		comment   domain.Comment
		createdAt time.Time
	)
	if err := row.Scan(&comment.ID, &comment.PageID, &comment.TargetID, &comment.AuthorID, &comment.Text, &comment.Resolved, &createdAt); err != nil {
		return domain.Comment{}, err
	}
	comment.CreatedAt = millis(createdAt)
	return comment, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, comment domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, page_id, target_id, author_id, body, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, comment.ID, comment.PageID, comment.TargetID, comment.AuthorID, comment.Text, comment.Resolved, fromMillis(comment.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID ids.CommentID) (domain.Comment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, target_id, author_id, body, resolved, created_at FROM comments WHERE id=$1
	`, commentID)
	return scanComment(row)
}

func (s *PostgresStore) ListComments(ctx context.Context, pageID ids.PageID) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, target_id, author_id, body, resolved, created_at
		FROM comments
		WHERE page_id=$1
		ORDER BY created_at, id
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ResolveComment(ctx context.Context, commentID ids.CommentID) error {
	result, err := s.db.ExecContext(ctx, `UPDATE comments SET resolved=TRUE WHERE id=$1`, commentID)
	if err != nil {
		return fmt.Errorf("resolve comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve comment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteComment(ctx context.Context, commentID ids.CommentID) error {
	return s.deleteByID(ctx, `DELETE FROM comments WHERE id=$1`, string(commentID), "comment")
}

// Assets

func (s *PostgresStore) InsertAsset(ctx context.Context, asset Asset) (Asset, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO assets (id, board_id, object_key, url, kind, content_type, bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, asset.ID, asset.BoardID, asset.ObjectKey, asset.URL, asset.Kind, asset.ContentType, asset.Bytes).Scan(&asset.CreatedAt)
	if err != nil {
		return Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	return asset, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, assetID ids.AssetID) (Asset, error) {
	var asset Asset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, board_id, object_key, url, kind, content_type, bytes, created_at FROM assets WHERE id=$1
	`, assetID).Scan(&asset.ID, &asset.BoardID, &asset.ObjectKey, &asset.URL, &asset.Kind, &asset.ContentType, &asset.Bytes, &asset.CreatedAt)
	if err != nil {
		return Asset{}, err
	}
	return asset, nil
}
