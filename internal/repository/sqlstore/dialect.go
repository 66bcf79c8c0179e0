package sqlstore

import (
	"fmt"
	"strings"
)

// dialect holds the SQL that differs between backends.
type dialect struct {
	name   string
	schema []string
	// like is the case-insensitive pattern operator. SQLite's LIKE already
	// ignores ASCII case; PostgreSQL needs ILIKE.
	like string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect, nil
	case "postgres":
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}

var sqliteDialect = dialect{
	name: "sqlite",
	like: "LIKE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL,
			password_hash TEXT,
			role          TEXT NOT NULL DEFAULT 'READER',
			oauth_id      TEXT UNIQUE,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS role_requests (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL REFERENCES users(id),
			role       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'PENDING',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_role_requests_status ON role_requests(status, id)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author_id  INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_author_created ON articles(author_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS user_followers (
			follower_id  INTEGER NOT NULL REFERENCES users(id),
			following_id INTEGER NOT NULL REFERENCES users(id),
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (follower_id, following_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_followers_following ON user_followers(following_id)`,
	},
}

var postgresDialect = dialect{
	name: "postgres",
	like: "ILIKE",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			username      TEXT NOT NULL,
			password_hash TEXT,
			role          TEXT NOT NULL DEFAULT 'READER',
			oauth_id      TEXT UNIQUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS role_requests (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id),
			role       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_role_requests_status ON role_requests(status, id)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id         BIGSERIAL PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			author_id  BIGINT NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_author_created ON articles(author_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS user_followers (
			follower_id  BIGINT NOT NULL REFERENCES users(id),
			following_id BIGINT NOT NULL REFERENCES users(id),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (follower_id, following_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_followers_following ON user_followers(following_id)`,
	},
}

// likeEscaper escapes the LIKE wildcards so a search term is matched
// literally. The escape character is declared with ESCAPE '\' in the query.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a search term into a "contains" LIKE pattern.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
