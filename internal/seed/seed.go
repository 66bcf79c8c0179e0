// Package seed fills an empty database with demo accounts and articles.
//
// It is safe to run more than once: accounts are looked up by email first,
// and a writer's articles are only inserted when that writer is created.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/auth"
	"github.com/sakif/blog-backend/internal/model"
	"github.com/sakif/blog-backend/internal/repository"
)

type account struct {
	email    string
	username string
	password string
	role     model.Role
	articles []model.Article
}

var accounts = []account{
	{
		email:    "admin@b4tech.tech.br",
		username: "admin",
		password: "admin123",
		role:     model.RoleAdmin,
	},
	{
		email:    "tania@gmail.com",
		username: "tania",
		password: "tania123",
		role:     model.RoleWriter,
		articles: []model.Article{
			{Title: "Artigo 1 escrito por Tania", Content: "This is the content of Article 1 by Tania."},
			{Title: "Artigo 2 escrito por Tania", Content: "This is the content of Article 2 by Tania"},
		},
	},
	{
		email:    "guto@gmail.com",
		username: "Guto",
		password: "guto123",
		role:     model.RoleWriter,
		articles: []model.Article{
			{Title: "Artigo 1 escrito por Guto", Content: "This is the content of Article 1 by Guto"},
			{Title: "Artigo 2 escrito por Guto", Content: "This is the content of Article 2 by Guto"},
		},
	},
}

// Result counts what Run actually inserted.
type Result struct {
	Users    int
	Articles int
}

// Seeder inserts the demo data through the repositories.
type Seeder struct {
	users     repository.UserRepository
	articles  repository.ArticleRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func New(users repository.UserRepository, articles repository.ArticleRepository, passwords *auth.PasswordService, logger *slog.Logger) *Seeder {
	return &Seeder{users: users, articles: articles, passwords: passwords, logger: logger}
}

// Run inserts whatever is missing.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result

	for _, a := range accounts {
		_, err := s.users.GetByEmail(ctx, a.email)
		if err == nil {
			s.logger.Debug("seed: account exists", slog.String("email", a.email))
			continue
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return res, fmt.Errorf("seed: looking up %s: %w", a.email, err)
		}

		hash, err := s.passwords.Hash(a.password)
		if err != nil {
			return res, fmt.Errorf("seed: hashing password for %s: %w", a.email, err)
		}

		user := &model.User{
			Email:        a.email,
			Username:     a.username,
			PasswordHash: &hash,
			Role:         a.role,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("seed: creating %s: %w", a.email, err)
		}
		res.Users++
		s.logger.Info("seed: account created",
			slog.String("email", user.Email),
			slog.String("role", string(user.Role)),
			slog.Int64("userID", user.ID),
		)

		for _, tmpl := range a.articles {
			article := tmpl
			article.AuthorID = user.ID
			if err := s.articles.Create(ctx, &article); err != nil {
				return res, fmt.Errorf("seed: creating article %q: %w", article.Title, err)
			}
			res.Articles++
		}
	}

	return res, nil
}
