// Package service contains the business rules of the blog.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take primitives and model types, never *http.Request, and return
// apperror kinds, never status codes. The seed command and the tests call
// them without any HTTP in between.
//
// Every service depends on repository interfaces, not on sqlstore. The
// tests in this package pass in-memory fakes.
package service

// Validation limits shared by the services and echoed in error messages.
const (
	MinPasswordLength = 6
	MaxUsernameLength = 50
	MaxTitleLength    = 200
	MaxContentLength  = 100000

	DefaultFeedLimit = 5
	MaxFeedLimit     = 100
)
