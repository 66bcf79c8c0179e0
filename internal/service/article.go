package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

// ArticleService owns article CRUD. Only the author may change or delete an
// article; the WRITER role itself is checked by the HTTP gate.
type ArticleService struct {
	repo   repository.ArticleRepository
	logger *slog.Logger
}

func NewArticleService(repo repository.ArticleRepository, logger *slog.Logger) *ArticleService {
	return &ArticleService{repo: repo, logger: logger}
}

func (s *ArticleService) List(ctx context.Context) ([]model.Article, error) {
	articles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/article: listing: %w", err)
	}
	return articles, nil
}

func (s *ArticleService) Get(ctx context.Context, id int64) (*model.Article, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ArticleService) Create(ctx context.Context, authorID int64, title, content string) (*model.Article, error) {
	title, content, err := validateArticle(title, content)
	if err != nil {
		return nil, err
	}

	article := &model.Article{Title: title, Content: content, AuthorID: authorID}
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("service/article: creating: %w", err)
	}

	s.logger.Info("article created",
		slog.Int64("articleID", article.ID),
		slog.Int64("authorID", authorID),
	)
	return article, nil
}

// Update replaces title and content. Fetch first so a missing article and a
// foreign article give different errors.
func (s *ArticleService) Update(ctx context.Context, authorID, id int64, title, content string) (*model.Article, error) {
	title, content, err := validateArticle(title, content)
	if err != nil {
		return nil, err
	}

	article, err := s.owned(ctx, authorID, id)
	if err != nil {
		return nil, err
	}

	article.Title = title
	article.Content = content
	if err := s.repo.Update(ctx, article); err != nil {
		return nil, fmt.Errorf("service/article: updating %d: %w", id, err)
	}

	s.logger.Info("article updated", slog.Int64("articleID", id))
	return article, nil
}

func (s *ArticleService) Delete(ctx context.Context, authorID, id int64) error {
	if _, err := s.owned(ctx, authorID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/article: deleting %d: %w", id, err)
	}

	s.logger.Info("article deleted", slog.Int64("articleID", id))
	return nil
}

func (s *ArticleService) owned(ctx context.Context, authorID, id int64) (*model.Article, error) {
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != authorID {
		return nil, apperror.NotAuthor()
	}
	return article, nil
}

func validateArticle(title, content string) (string, string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", "", apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return "", "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(content) == "" {
		return "", "", apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxContentLength {
		return "", "", apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return title, content, nil
}
