package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
)

// Articles is the part of service.ArticleService the routes use.
type Articles interface {
	List(ctx context.Context) ([]model.Article, error)
	Get(ctx context.Context, id int64) (*model.Article, error)
	Create(ctx context.Context, authorID int64, title, content string) (*model.Article, error)
	Update(ctx context.Context, authorID, id int64, title, content string) (*model.Article, error)
	Delete(ctx context.Context, authorID, id int64) error
}

// ArticleHandler serves /articles. Reads are public; writes need the WRITER
// gate, and the service additionally checks authorship.
type ArticleHandler struct {
	articles Articles
	validate *Validator
	logger   *slog.Logger
}

func NewArticleHandler(articles Articles, validate *Validator, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, validate: validate, logger: logger}
}

type articleRequest struct {
	Title   string `json:"title"   validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// HTTP: GET /articles
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// HTTP: GET /articles/{articleId}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "articleId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	article, err := h.articles.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// HTTP: POST /articles → 201
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())

	var req articleRequest
	if err := h.validate.decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	article, err := h.articles.Create(r.Context(), me, req.Title, req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, article)
}

// HTTP: PUT /articles/{articleId}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r, "articleId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req articleRequest
	if err := h.validate.decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	article, err := h.articles.Update(r.Context(), me, id, req.Title, req.Content)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// HTTP: DELETE /articles/{articleId} → 204
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r, "articleId")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.articles.Delete(r.Context(), me, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
