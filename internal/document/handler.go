package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"docsearch/internal/document/model"
	"docsearch/internal/document/service"
	"docsearch/internal/session"
	"docsearch/pkg/logger"

	"github.com/gorilla/mux"
)

const welcomeMessage = "Welcome to the AI Search Engine!"

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: welcomeMessage})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	docs, err := h.Service.ListDocuments(r.Context(), sess)
	if err != nil {
		writeServiceError(w, err, "Error fetching documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	docs, err := h.Service.SearchDocuments(r.Context(), sess, params)
	if err != nil {
		writeServiceError(w, err, "Error searching documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	title, content, err := decodeDocumentRequest(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.CreateDocument(r.Context(), sess, title, content)
	if err != nil {
		writeServiceError(w, err, "Handler: Failed to create document")
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.GetDocument(r.Context(), sess, id)
	if err != nil {
		writeServiceError(w, err, fmt.Sprintf("Handler: Failed to get document %d", id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	title, content, err := decodeDocumentRequest(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.UpdateDocument(r.Context(), sess, id, title, content)
	if err != nil {
		writeServiceError(w, err, fmt.Sprintf("Handler: Failed to update document %d", id))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sess, ok := requestSession(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDocument(r.Context(), sess, id); err != nil {
		writeServiceError(w, err, fmt.Sprintf("Handler: Failed to delete document %d", id))
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Document deleted successfully"})
}

// parseSearchParams validates the search query string. Out-of-range values
// are rejected here so they never reach the store.
func parseSearchParams(q url.Values) (model.SearchParams, error) {
	params := model.SearchParams{Limit: model.DefaultSearchLimit}

	query, ok := q["query"]
	if !ok {
		return params, errors.New("query parameter is required")
	}
	params.Query = query[0]

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("limit must be an integer")
		}
		if n < 1 || n > model.MaxSearchLimit {
			return params, fmt.Errorf("limit must be between 1 and %d", model.MaxSearchLimit)
		}
		params.Limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return params, errors.New("offset must be an integer")
		}
		if n < 0 {
			return params, errors.New("offset must be greater than or equal to 0")
		}
		params.Offset = n
	}
	return params, nil
}

func decodeDocumentRequest(r *http.Request) (string, string, error) {
	var req model.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", "", errors.New("invalid request body")
	}
	if req.Title == nil {
		return "", "", errors.New("title is required")
	}
	if req.Content == nil {
		return "", "", errors.New("content is required")
	}
	return *req.Title, *req.Content, nil
}

func documentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, errors.New("id must be an integer")
	}
	return id, nil
}

func requestSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		logger.Sugar.Errorf("No database session on request %s %s", r.Method, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
	return sess, ok
}

func writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
	case errors.Is(err, service.ErrNoResults):
		writeError(w, http.StatusNotFound, "No results found")
	default:
		logger.Sugar.Errorf("%s: %v", logMsg, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Failed to write response: %v", err)
	}
}
