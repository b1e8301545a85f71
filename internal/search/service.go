package search

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts Searcher
	log   logrus.FieldLogger
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts Searcher, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{meili: meili, pgfts: pgfts, log: log.WithField("component", "search")}
}

func (s *Service) meiliReady() bool {
	return s.meili != nil && s.meili.Healthy()
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meiliReady() {
		results, total, err := s.meili.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.WithError(err).Warn("meilisearch error, falling back to pgfts")
	}
	if s.pgfts == nil {
		return Response{Results: []Result{}, Query: q.Text}
	}

	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.log.WithError(err).Error("pgfts search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexBoard indexes a board (fire-and-forget to Meilisearch).
func (s *Service) IndexBoard(b BoardRecord) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexBoards(b); err != nil {
			s.log.WithError(err).WithField("board_id", b.ID).Warn("index board")
		}
	}()
}

// IndexPage indexes a page's name and text (fire-and-forget to Meilisearch).
func (s *Service) IndexPage(p PageRecord) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.IndexPages(p); err != nil {
			s.log.WithError(err).WithField("page_id", p.ID).Warn("index page")
		}
	}()
}

func (s *Service) DeleteBoard(id string) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeleteBoard(id); err != nil {
			s.log.WithError(err).WithField("board_id", id).Warn("delete board from index")
		}
	}()
}

func (s *Service) DeletePage(id string) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeletePage(id); err != nil {
			s.log.WithError(err).WithField("page_id", id).Warn("delete page from index")
		}
	}()
}

// ReindexAllFromPG pushes every board and page from PostgreSQL into
// Meilisearch. Called at startup when Meilisearch is reachable.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	pg, ok := s.pgfts.(*PgFTS)
	if !s.meiliReady() || !ok {
		return
	}
	boards, pages, err := pg.LoadAllRecords(ctx)
	if err != nil {
		s.log.WithError(err).Error("reindex load failed")
		return
	}
	if err := s.meili.IndexBoards(boards...); err != nil {
		s.log.WithError(err).Warn("reindex boards")
	}
	if err := s.meili.IndexPages(pages...); err != nil {
		s.log.WithError(err).Warn("reindex pages")
	}
	s.log.WithFields(logrus.Fields{"boards": len(boards), "pages": len(pages)}).Info("search reindex queued")
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
