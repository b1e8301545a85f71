package app

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/assets"
	"whiteboard/api/internal/config"
	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/events"
	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/search"
	"whiteboard/api/internal/store"
)

const (
	defaultUserPageSize = 20
	maxUserPageSize     = 100
	maxOperationsPage   = 500
	sideEffectTimeout   = 5 * time.Second
)

type dataStore interface {
	Ping(context.Context) error

	InsertUser(context.Context, store.User) (store.User, error)
	GetUser(context.Context, ids.UserID) (store.User, error)
	ListUsers(context.Context, int, int) ([]store.User, int, error)
	UpdateUser(context.Context, store.User) (store.User, error)
	DeleteUser(context.Context, ids.UserID) error

	InsertBoard(context.Context, domain.Board) error
	GetBoard(context.Context, ids.BoardID) (domain.Board, error)
	ListBoards(context.Context, ids.UserID) ([]domain.Board, error)
	UpdateBoard(context.Context, domain.Board) error
	DeleteBoard(context.Context, ids.BoardID) error

	InsertPage(context.Context, domain.Page, string) error
	GetPage(context.Context, ids.PageID) (domain.Page, error)
	ListPages(context.Context, ids.BoardID) ([]domain.Page, error)
	UpdatePageMeta(context.Context, domain.Page) error
	DeletePage(context.Context, ids.PageID) error

	GetPageState(context.Context, ids.PageID) (store.PageState, error)
	CommitPatches(context.Context, store.CommitInput) (store.PageState, error)
	ListOperations(context.Context, ids.PageID, int, int) ([]store.Operation, error)

	InsertComment(context.Context, domain.Comment) error
	GetComment(context.Context, ids.CommentID) (domain.Comment, error)
	ListComments(context.Context, ids.PageID) ([]domain.Comment, error)
	ResolveComment(context.Context, ids.CommentID) error
	DeleteComment(context.Context, ids.CommentID) error

	InsertAsset(context.Context, store.Asset) (store.Asset, error)
	GetAsset(context.Context, ids.AssetID) (store.Asset, error)
}

// searchIndex is the part of *search.Service the service feeds and queries.
type searchIndex interface {
	Search(context.Context, search.Query) search.Response
	IndexBoard(search.BoardRecord)
	IndexPage(search.PageRecord)
	DeleteBoard(string)
	DeletePage(string)
}

// Options carries the optional collaborators of a Service. Nil fields disable
// the matching feature: no events, no search index, no uploads.
type Options struct {
	Events events.Broker
	Search *search.Service
	Assets assets.ObjectStore
	Logger logrus.FieldLogger
}

type Service struct {
	cfg    config.Config
	store  dataStore
	events events.Broker
	search searchIndex
	assets assets.ObjectStore
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(cfg config.Config, dataStore *store.PostgresStore, opts Options) *Service {
	return newService(cfg, dataStore, opts)
}

func newService(cfg config.Config, dataStore dataStore, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	svc := &Service{
		cfg:    cfg,
		store:  dataStore,
		events: opts.Events,
		assets: opts.Assets,
		log:    log.WithField("component", "service"),
		now:    time.Now,
	}
	if opts.Search != nil {
		svc.search = opts.Search
	}
	return svc
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

type pinger interface {
	Ping(context.Context) error
}

// ReadinessChecks pings the database and, when configured, the event broker
// and the asset store.
func (s *Service) ReadinessChecks(ctx context.Context) map[string]error {
	checks := map[string]error{"database": s.store.Ping(ctx)}
	if p, ok := s.events.(pinger); ok && s.events != nil {
		checks["events"] = p.Ping(ctx)
	}
	if s.assets != nil {
		checks["assets"] = s.assets.Ping(ctx)
	}
	return checks
}

// Events returns the broker page subscribers attach to, or nil.
func (s *Service) Events() events.Broker {
	return s.events
}

// Users

type UserInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type UserUpdate struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type UserList struct {
	Items []store.User `json:"items"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", validationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", validationError("email is not valid")
	}
	return email, nil
}

func (s *Service) CreateUser(ctx context.Context, input UserInput) (store.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return store.User{}, err
	}
	return s.store.InsertUser(ctx, store.User{
		ID:    ids.New[ids.UserID](),
		Email: email,
		Name:  strings.TrimSpace(input.Name),
	})
}

// ListUsers pages through users; page is 1-based.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (UserList, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	items, total, err := s.store.ListUsers(ctx, limit, (page-1)*limit)
	if err != nil {
		return UserList{}, err
	}
	return UserList{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) GetUser(ctx context.Context, userID ids.UserID) (store.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *Service) UpdateUser(ctx context.Context, userID ids.UserID, update UserUpdate) (store.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return store.User{}, err
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return store.User{}, err
		}
		user.Email = email
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	return s.store.UpdateUser(ctx, user)
}

func (s *Service) DeleteUser(ctx context.Context, userID ids.UserID) error {
	return s.store.DeleteUser(ctx, userID)
}

// Boards

type BoardInput struct {
	Title   string     `json:"title"`
	OwnerID ids.UserID `json:"ownerId"`
}

func (s *Service) CreateBoard(ctx context.Context, input BoardInput) (domain.Board, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || strings.TrimSpace(string(input.OwnerID)) == "" {
		return domain.Board{}, validationError("title and ownerId are required")
	}
	board := domain.NewBoard(title, input.OwnerID, s.now())
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return domain.Board{}, err
	}
	s.indexBoard(board)
	return board, nil
}

// ListBoards returns every board, or only those userID owns or collaborates
// on when userID is set.
func (s *Service) ListBoards(ctx context.Context, userID ids.UserID) ([]domain.Board, error) {
	return s.store.ListBoards(ctx, userID)
}

func (s *Service) GetBoard(ctx context.Context, boardID ids.BoardID) (domain.Board, error) {
	return s.store.GetBoard(ctx, boardID)
}

// UpdateBoard applies update. A new page order must be a permutation of the
// board's current pages.
func (s *Service) UpdateBoard(ctx context.Context, boardID ids.BoardID, update domain.BoardUpdate) (domain.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return domain.Board{}, validationError("title must not be blank")
	}
	if update.PageIDs != nil && !board.SamePages(update.PageIDs) {
		return domain.Board{}, validationError("pages must reorder the existing pages of the board")
	}
	next := board.WithUpdate(update, s.now())
	if err := s.store.UpdateBoard(ctx, next); err != nil {
		return domain.Board{}, err
	}
	if next.Title != board.Title {
		s.indexBoard(next)
	}
	return next, nil
}

func (s *Service) DeleteBoard(ctx context.Context, boardID ids.BoardID) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteBoard(string(boardID))
		for _, pageID := range board.PageIDs {
			s.search.DeletePage(string(pageID))
		}
	}
	return nil
}

// Pages

type PageInput struct {
	BoardID ids.BoardID `json:"boardId"`
	Name    string      `json:"name"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
}

func (s *Service) CreatePage(ctx context.Context, input PageInput) (domain.Page, error) {
	if strings.TrimSpace(string(input.BoardID)) == "" {
		return domain.Page{}, validationError("boardId is required")
	}
	if input.Width < 0 || input.Height < 0 {
		return domain.Page{}, validationError("width and height must be positive")
	}
	page, err := domain.NewPage(input.BoardID, domain.PageOptions{
		Name:   strings.TrimSpace(input.Name),
		Width:  input.Width,
		Height: input.Height,
	}, s.now())
	if err != nil {
		return domain.Page{}, err
	}
	if err := s.store.InsertPage(ctx, page, ""); err != nil {
		return domain.Page{}, err
	}
	s.indexPage(page, page.Content)
	return page, nil
}

func (s *Service) GetPage(ctx context.Context, pageID ids.PageID) (domain.Page, error) {
	return s.store.GetPage(ctx, pageID)
}

func (s *Service) ListPages(ctx context.Context, boardID ids.BoardID) ([]domain.Page, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}
	return s.store.ListPages(ctx, boardID)
}

// UpdatePage changes page metadata only; content and version are untouched.
func (s *Service) UpdatePage(ctx context.Context, pageID ids.PageID, update domain.PageUpdate) (domain.Page, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return domain.Page{}, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return domain.Page{}, validationError("name must not be blank")
	}
	if (update.Width != nil && *update.Width <= 0) || (update.Height != nil && *update.Height <= 0) {
		return domain.Page{}, validationError("width and height must be positive")
	}
	if update.Viewport != nil && update.Viewport.Zoom <= 0 {
		return domain.Page{}, validationError("viewport zoom must be positive")
	}
	next := page.WithUpdate(update, s.now())
	if err := s.store.UpdatePageMeta(ctx, next); err != nil {
		return domain.Page{}, err
	}
	if next.Name != page.Name {
		s.indexPage(next, next.Content)
	}
	return next, nil
}

func (s *Service) DeletePage(ctx context.Context, pageID ids.PageID) error {
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeletePage(string(pageID))
	}
	return nil
}

// Comments

type CommentInput struct {
	TargetID ids.ShapeID `json:"targetId"`
	AuthorID ids.UserID  `json:"authorId"`
	Text     string      `json:"text"`
}

// CreateComment attaches a comment to a shape that exists in the page's
// current content.
func (s *Service) CreateComment(ctx context.Context, pageID ids.PageID, input CommentInput) (domain.Comment, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" || input.TargetID == "" || input.AuthorID == "" {
		return domain.Comment{}, validationError("targetId, authorId and text are required")
	}
	state, err := s.store.GetPageState(ctx, pageID)
	if err != nil {
		return domain.Comment{}, err
	}
	if !domain.ContentShapeIDs(state.Content)[input.TargetID] {
		return domain.Comment{}, validationError(fmt.Sprintf("shape %s is not on page %s", input.TargetID, pageID))
	}
	comment := domain.NewComment(pageID, input.TargetID, input.AuthorID, text, s.now())
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return domain.Comment{}, err
	}
	return comment, nil
}

// ListComments returns the comments of a page. Comments whose shape has been
// deleted since are flagged orphaned.
func (s *Service) ListComments(ctx context.Context, pageID ids.PageID) ([]domain.Comment, error) {
	state, err := s.store.GetPageState(ctx, pageID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return flagOrphans(comments, state.Content), nil
}

func flagOrphans(comments []domain.Comment, content map[string]any) []domain.Comment {
	present := domain.ContentShapeIDs(content)
	for i := range comments {
		comments[i].Orphaned = !present[comments[i].TargetID]
	}
	return comments
}

func (s *Service) ResolveComment(ctx context.Context, commentID ids.CommentID) (domain.Comment, error) {
	if err := s.store.ResolveComment(ctx, commentID); err != nil {
		return domain.Comment{}, err
	}
	return s.store.GetComment(ctx, commentID)
}

func (s *Service) DeleteComment(ctx context.Context, commentID ids.CommentID) error {
	return s.store.DeleteComment(ctx, commentID)
}

// Assets

type AssetUpload struct {
	BoardID     ids.BoardID
	Filename    string
	ContentType string
	Data        []byte
}

var errAssetsUnavailable = domainError(http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Asset storage not configured", nil)

// UploadAsset writes the file to the object store and records its metadata.
func (s *Service) UploadAsset(ctx context.Context, upload AssetUpload) (store.Asset, error) {
	if s.assets == nil {
		return store.Asset{}, errAssetsUnavailable
	}
	if strings.TrimSpace(string(upload.BoardID)) == "" || len(upload.Data) == 0 {
		return store.Asset{}, validationError("file and boardId are required")
	}
	if _, err := s.store.GetBoard(ctx, upload.BoardID); err != nil {
		return store.Asset{}, err
	}
	assetID := ids.New[ids.AssetID]()
	key := assets.ObjectKey(string(upload.BoardID), string(assetID), upload.Filename)
	if err := s.assets.PutObject(ctx, key, upload.Data, upload.ContentType); err != nil {
		return store.Asset{}, fmt.Errorf("store asset: %w", err)
	}
	return s.store.InsertAsset(ctx, store.Asset{
		ID:          assetID,
		BoardID:     upload.BoardID,
		ObjectKey:   key,
		URL:         s.assets.URL(key),
		Kind:        assets.KindFor(upload.ContentType),
		ContentType: upload.ContentType,
		Bytes:       int64(len(upload.Data)),
	})
}

func (s *Service) GetAsset(ctx context.Context, assetID ids.AssetID) (store.Asset, error) {
	return s.store.GetAsset(ctx, assetID)
}

// Search

func (s *Service) Search(ctx context.Context, q search.Query) (search.Response, error) {
	if strings.TrimSpace(q.Text) == "" {
		return search.Response{}, validationError("q is required")
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}, nil
	}
	return s.search.Search(ctx, q), nil
}

func (s *Service) indexBoard(board domain.Board) {
	if s.search == nil {
		return
	}
	s.search.IndexBoard(search.BoardRecord{ID: string(board.ID), Title: board.Title, OwnerID: string(board.OwnerID)})
}

func (s *Service) indexPage(page domain.Page, content map[string]any) {
	if s.search == nil {
		return
	}
	s.search.IndexPage(search.PageRecord{
		ID:      string(page.ID),
		BoardID: string(page.BoardID),
		Name:    page.Name,
		Text:    searchText(content),
	})
}

func searchText(content map[string]any) string {
	return strings.Join(domain.ContentText(content), "\n")
}
