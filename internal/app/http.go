package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"whiteboard/api/internal/domain"
	"whiteboard/api/internal/ids"
	"whiteboard/api/internal/patch"
	"whiteboard/api/internal/search"
)

const eventKeepAlive = 25 * time.Second

type HTTPServer struct {
	service      *Service
	corsOrigin   string
	maxBodyBytes int64
	log          logrus.FieldLogger
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:      service,
		corsOrigin:   corsOrigin,
		maxBodyBytes: service.cfg.MaxBodyBytes,
		log:          service.log.WithField("component", "http"),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}
	if s.maxBodyBytes > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{}
		for name, err := range s.service.ReadinessChecks(ctx) {
			if err != nil {
				status = "not_ready"
				statusCode = http.StatusServiceUnavailable
				checks[name] = map[string]any{"status": "error", "error": err.Error()}
				continue
			}
			checks[name] = map[string]any{"status": "ok"}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	switch parts[1] {
	case "users":
		s.routeUsers(w, r, parts[2:])
	case "boards":
		s.routeBoards(w, r, parts[2:])
	case "pages":
		s.routePages(w, r, parts[2:])
	case "comments":
		s.routeComments(w, r, parts[2:])
	case "assets":
		s.routeAssets(w, r, parts[2:])
	case "search":
		s.handleSearch(w, r, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) routeUsers(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			page, err := queryInt(r, "page", 1)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			limit, err := queryInt(r, "limit", defaultUserPageSize)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			list, err := s.service.ListUsers(r.Context(), page, limit)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		case http.MethodPost:
			var body UserInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			user, err := s.service.CreateUser(r.Context(), body)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, user)
		default:
			methodNotAllowed(w)
		}
		return
	}

	userID, ok := pathID[ids.UserID](w, parts, 1)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := s.service.GetUser(r.Context(), userID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var body UserUpdate
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.UpdateUser(r.Context(), userID, body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.service.DeleteUser(r.Context(), userID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) routeBoards(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			userID := ids.UserID(strings.TrimSpace(r.URL.Query().Get("userId")))
			boards, err := s.service.ListBoards(r.Context(), userID)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"boards": boards})
		case http.MethodPost:
			var body BoardInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			board, err := s.service.CreateBoard(r.Context(), body)
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, board)
		default:
			methodNotAllowed(w)
		}
		return
	}

	boardID, ok := pathID[ids.BoardID](w, parts, 2)
	if !ok {
		return
	}
	if len(parts) == 2 {
		if parts[1] != "pages" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		pages, err := s.service.ListPages(r.Context(), boardID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
		return
	}

	switch r.Method {
	case http.MethodGet:
		board, err := s.service.GetBoard(r.Context(), boardID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	case http.MethodPatch:
		var body domain.BoardUpdate
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		board, err := s.service.UpdateBoard(r.Context(), boardID, body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	case http.MethodDelete:
		if err := s.service.DeleteBoard(r.Context(), boardID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) routePages(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body PageInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		page, err := s.service.CreatePage(r.Context(), body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, page)
		return
	}

	pageID, ok := pathID[ids.PageID](w, parts, 2)
	if !ok {
		return
	}
	if len(parts) == 1 {
		s.handlePage(w, r, pageID)
		return
	}

	switch parts[1] {
	case "content":
		s.handlePageContent(w, r, pageID)
	case "operations":
		s.handlePageOperations(w, r, pageID)
	case "doc":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		doc, err := s.service.LoadDoc(r.Context(), pageID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case "events":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.streamPageEvents(w, r, pageID)
	case "comments":
		s.handlePageComments(w, r, pageID)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request, pageID ids.PageID) {
	switch r.Method {
	case http.MethodGet:
		page, err := s.service.GetPage(r.Context(), pageID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodPatch:
		var body domain.PageUpdate
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		page, err := s.service.UpdatePage(r.Context(), pageID, body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodDelete:
		if err := s.service.DeletePage(r.Context(), pageID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handlePageContent(w http.ResponseWriter, r *http.Request, pageID ids.PageID) {
	switch r.Method {
	case http.MethodPatch:
		var body struct {
			BaseVersion json.RawMessage `json:"baseVersion"`
			AuthorID    string          `json:"authorId"`
			Patches     json.RawMessage `json:"patches"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		baseVersion, err := parseVersion(body.BaseVersion)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var patches []patch.Patch
		if len(body.Patches) > 0 {
			if err := json.Unmarshal(body.Patches, &patches); err != nil {
				if errors.Is(err, patch.ErrInvalidOp) {
					writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
					return
				}
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "patches must be an array of patch objects", nil)
				return
			}
		}
		state, err := s.service.PatchPageContent(r.Context(), pageID, PatchContentInput{
			BaseVersion: baseVersion,
			AuthorID:    body.AuthorID,
			Patches:     patches,
			Raw:         body.Patches,
		})
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case http.MethodPut:
		var body struct {
			BaseVersion json.RawMessage `json:"baseVersion"`
			AuthorID    string          `json:"authorId"`
			Content     map[string]any  `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		baseVersion, err := parseVersion(body.BaseVersion)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		state, err := s.service.ReplacePageContent(r.Context(), pageID, baseVersion, body.AuthorID, body.Content)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handlePageOperations(w http.ResponseWriter, r *http.Request, pageID ids.PageID) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	since, err := queryInt(r, "since", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	operations, err := s.service.ListOperations(r.Context(), pageID, since, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": operations})
}

// streamPageEvents relays committed batches of a page as server-sent events.
// Each event id is the page version the batch produced, so a client that
// reconnects can catch up through the operations endpoint.
func (s *HTTPServer) streamPageEvents(w http.ResponseWriter, r *http.Request, pageID ids.PageID) {
	broker := s.service.Events()
	if broker == nil {
		writeError(w, http.StatusServiceUnavailable, "EVENTS_UNAVAILABLE", "Page events not configured", nil)
		return
	}
	if _, err := s.service.GetPage(r.Context(), pageID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported", nil)
		return
	}

	messages, cancel, err := broker.Subscribe(r.Context(), pageID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-messages:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.log.WithError(err).WithField("page_id", pageID).Warn("encode page event")
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: patch\ndata: %s\n\n", event.Version, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *HTTPServer) handlePageComments(w http.ResponseWriter, r *http.Request, pageID ids.PageID) {
	switch r.Method {
	case http.MethodGet:
		comments, err := s.service.ListComments(r.Context(), pageID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
	case http.MethodPost:
		var body CommentInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		comment, err := s.service.CreateComment(r.Context(), pageID, body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) routeComments(w http.ResponseWriter, r *http.Request, parts []string) {
	commentID, ok := pathID[ids.CommentID](w, parts, 1)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var body struct {
			Resolved bool `json:"resolved"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if !body.Resolved {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "comments can only be resolved", nil)
			return
		}
		comment, err := s.service.ResolveComment(r.Context(), commentID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, comment)
	case http.MethodDelete:
		if err := s.service.DeleteComment(r.Context(), commentID); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) routeAssets(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleAssetUpload(w, r)
		return
	}
	assetID, ok := pathID[ids.AssetID](w, parts, 1)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	asset, err := s.service.GetAsset(r.Context(), assetID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *HTTPServer) handleAssetUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file and boardId are required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read upload", nil)
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	asset, err := s.service.UploadAsset(r.Context(), AssetUpload{
		BoardID:     ids.BoardID(strings.TrimSpace(r.FormValue("boardId"))),
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	filterType, ok := search.ParseResultType(query.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", "type must be board or page", nil)
		return
	}
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	resp, err := s.service.Search(r.Context(), search.Query{
		Text:          strings.TrimSpace(query.Get("q")),
		FilterType:    filterType,
		FilterBoardID: strings.TrimSpace(query.Get("boardId")),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFrom(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("request")
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// parseVersion reads a baseVersion field. Absent and null yield nil; any
// other value must be a JSON integer.
func parseVersion(raw json.RawMessage) (*int, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, nil
	}
	version, err := strconv.Atoi(text)
	if err != nil {
		return nil, fmt.Errorf("baseVersion must be an integer")
	}
	return &version, nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return value, nil
}

// pathID reads the identifier at parts[0] and checks that the path has at
// most maxParts segments below the collection.
func pathID[T ids.ID](w http.ResponseWriter, parts []string, maxParts int) (T, bool) {
	if len(parts) == 0 || len(parts) > maxParts {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return "", false
	}
	id, err := ids.Parse[T](parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return "", false
	}
	return id, true
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
