package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/events"
	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
	"whiteboard/api/internal/store"
)

// PatchContentInput is one patch batch submitted against BaseVersion.
type PatchContentInput struct {
	BaseVersion *int
	AuthorID    string
	Patches     []patch.Patch
	// Raw is the batch as submitted. It is stored in the operation log as is;
	// when empty the decoded Patches are re-encoded instead.
	Raw json.RawMessage
}

// PatchPageContent applies a batch to the stored content of a page under
// optimistic concurrency. The batch commits only if the page is still at
// BaseVersion; content and version then change together and the batch is
// appended to the page's operation log. A rejected batch changes nothing.
func (s *Service) PatchPageContent(ctx context.Context, pageID ids.PageID, input PatchContentInput) (store.PageState, error) {
	if strings.TrimSpace(string(pageID)) == "" {
		return store.PageState{}, validationError("page id is required")
	}
	if input.BaseVersion == nil {
		return store.PageState{}, validationError("baseVersion is required")
	}
	if len(input.Patches) == 0 {
		return store.PageState{}, validationError("patches must not be empty")
	}
	if err := patch.Validate(input.Patches); err != nil {
		var patchErr *patch.Error
		if errors.As(err, &patchErr) {
			return store.PageState{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), patchErrorDetails(patchErr))
		}
		return store.PageState{}, validationError(err.Error())
	}

	current, err := s.store.GetPageState(ctx, pageID)
	if err != nil {
		return store.PageState{}, err
	}
	if current.Version != *input.BaseVersion {
		return store.PageState{}, &store.VersionConflictError{PageID: pageID, Current: current.Version}
	}

	next, err := patch.ApplyClone(current.Content, input.Patches)
	if err != nil {
		return store.PageState{}, err
	}
	if err := checkContent(current.Content, next, input.Patches); err != nil {
		return store.PageState{}, err
	}

	raw := input.Raw
	if len(raw) == 0 {
		if raw, err = json.Marshal(input.Patches); err != nil {
			return store.PageState{}, fmt.Errorf("encode patches: %w", err)
		}
	}

	var authorID *string
	if author := strings.TrimSpace(input.AuthorID); author != "" {
		authorID = &author
	}

	committed, err := s.store.CommitPatches(ctx, store.CommitInput{
		PageID:      pageID,
		BaseVersion: *input.BaseVersion,
		AuthorID:    authorID,
		Patches:     raw,
		Content:     next,
		SearchText:  searchText(next),
	})
	if err != nil {
		return store.PageState{}, err
	}

	s.afterCommit(ctx, committed, authorID, raw)
	return committed, nil
}

// checkContent rejects a batch that applied cleanly but left the content
// outside the page model: undecodable layers or shapes, layer entries naming
// missing shapes, or a shape whose kind changed.
func checkContent(before, after map[string]any, patches []patch.Patch) error {
	next, err := domain.ValidateContent(after)
	if err == nil {
		if prev, decodeErr := domain.DecodeContent(before); decodeErr == nil {
			err = domain.CheckShapeKinds(prev.Shapes, next.Shapes)
		}
	}
	if err == nil {
		return nil
	}
	var contentErr *domain.ContentError
	if errors.As(err, &contentErr) {
		return patch.Reject(patches, contentErr.Path, err)
	}
	return patch.Reject(patches, "", err)
}

// afterCommit announces a committed batch and refreshes the page's search
// entry. Failures are logged; the commit already happened.
func (s *Service) afterCommit(ctx context.Context, state store.PageState, authorID *string, raw json.RawMessage) {
	log := s.log.WithFields(logrus.Fields{"page_id": state.ID, "version": state.Version})
	log.Debug("page content committed")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.events != nil {
		err := s.events.Publish(ctx, events.Event{
			PageID:      state.ID,
			Version:     state.Version,
			AuthorID:    authorID,
			Patches:     raw,
			CommittedAt: s.now().UnixMilli(),
		})
		if err != nil {
			log.WithError(err).Warn("publish page event")
		}
	}

	if s.search != nil {
		page, err := s.store.GetPage(ctx, state.ID)
		if err != nil {
			log.WithError(err).Warn("load page for indexing")
			return
		}
		s.indexPage(page, state.Content)
	}
}

// ReplacePageContent stores content as the page's new content by diffing it
// against the stored content and committing the diff as one batch. An empty
// diff leaves the page and its version alone.
func (s *Service) ReplacePageContent(ctx context.Context, pageID ids.PageID, baseVersion *int, authorID string, content map[string]any) (store.PageState, error) {
	if baseVersion == nil {
		return store.PageState{}, validationError("baseVersion is required")
	}
	if content == nil {
		return store.PageState{}, validationError("content is required")
	}
	if _, err := domain.ValidateContent(content); err != nil {
		return store.PageState{}, validationError(err.Error())
	}

	current, err := s.store.GetPageState(ctx, pageID)
	if err != nil {
		return store.PageState{}, err
	}
	if current.Version != *baseVersion {
		return store.PageState{}, &store.VersionConflictError{PageID: pageID, Current: current.Version}
	}

	patches, err := patch.Diff(current.Content, content)
	if err != nil {
		return store.PageState{}, validationError(err.Error())
	}
	if len(patches) == 0 {
		return current, nil
	}
	return s.PatchPageContent(ctx, pageID, PatchContentInput{
		BaseVersion: baseVersion,
		AuthorID:    authorID,
		Patches:     patches,
	})
}

// ListOperations returns committed batches of a page above sinceVersion,
// oldest first.
func (s *Service) ListOperations(ctx context.Context, pageID ids.PageID, sinceVersion, limit int) ([]store.Operation, error) {
	if sinceVersion < 0 {
		return nil, validationError("since must not be negative")
	}
	if limit < 0 {
		return nil, validationError("limit must not be negative")
	}
	if limit > maxOperationsPage {
		limit = maxOperationsPage
	}
	return s.store.ListOperations(ctx, pageID, sinceVersion, limit)
}

// LoadDoc rebuilds the in-memory document of the board a page belongs to,
// with that page as the current page.
func (s *Service) LoadDoc(ctx context.Context, pageID ids.PageID) (*domain.Doc, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	board, err := s.store.GetBoard(ctx, page.BoardID)
	if err != nil {
		return nil, err
	}
	pages, err := s.store.ListPages(ctx, board.ID)
	if err != nil {
		return nil, err
	}

	var comments []domain.Comment
	for _, p := range pages {
		pageComments, err := s.store.ListComments(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		comments = append(comments, flagOrphans(pageComments, p.Content)...)
	}

	doc, err := domain.AssembleDoc(board, pages, comments, &page.ID)
	if err != nil {
		return nil, fmt.Errorf("assemble doc: %w", err)
	}
	return doc, nil
}
