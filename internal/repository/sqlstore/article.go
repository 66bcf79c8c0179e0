package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

var _ repository.ArticleRepository = (*ArticleStore)(nil)

type ArticleStore struct {
	db *DB
}

const articleColumns = `id, title, content, author_id, created_at, updated_at`

func (s *ArticleStore) Create(ctx context.Context, article *model.Article) error {
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	query := s.db.conn.Rebind(
		`INSERT INTO articles (title, content, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`)

	err := s.db.conn.QueryRowxContext(ctx, query,
		article.Title, article.Content, article.AuthorID, article.CreatedAt, article.UpdatedAt,
	).Scan(&article.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", strconv.FormatInt(article.AuthorID, 10))
		}
		return fmt.Errorf("sqlstore: inserting article: %w", err)
	}
	return nil
}

// GetByID returns apperror.ErrArticleNotFound if there is no such article.
func (s *ArticleStore) GetByID(ctx context.Context, id int64) (*model.Article, error) {
	var a model.Article
	query := s.db.conn.Rebind(`SELECT ` + articleColumns + ` FROM articles WHERE id = ?`)
	if err := s.db.conn.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ArticleNotFound(id)
		}
		return nil, fmt.Errorf("sqlstore: getting article %d: %w", id, err)
	}
	return &a, nil
}

// List returns every article, newest first.
func (s *ArticleStore) List(ctx context.Context) ([]model.Article, error) {
	articles := []model.Article{}
	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY created_at DESC, id DESC`
	if err := s.db.conn.SelectContext(ctx, &articles, query); err != nil {
		return nil, fmt.Errorf("sqlstore: listing articles: %w", err)
	}
	return articles, nil
}

// Update writes title and content. The author never changes.
func (s *ArticleStore) Update(ctx context.Context, article *model.Article) error {
	article.UpdatedAt = time.Now().UTC()

	query := s.db.conn.Rebind(`UPDATE articles SET title = ?, content = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.conn.ExecContext(ctx, query, article.Title, article.Content, article.UpdatedAt, article.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: updating article %d: %w", article.ID, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ArticleNotFound(article.ID)
	}
	return nil
}

func (s *ArticleStore) Delete(ctx context.Context, id int64) error {
	query := s.db.conn.Rebind(`DELETE FROM articles WHERE id = ?`)
	res, err := s.db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting article %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.ArticleNotFound(id)
	}
	return nil
}
