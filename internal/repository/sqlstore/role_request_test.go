package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-backend/internal/apperror"
	"github.com/sakif/blog-backend/internal/model"
)

func createTestRequest(t *testing.T, db *DB, userID int64, role model.Role) *model.RoleRequest {
	t.Helper()
	req := &model.RoleRequest{UserID: userID, Role: role}
	if err := db.RoleRequests().Create(context.Background(), req); err != nil {
		t.Fatalf("failed to create role request: %v", err)
	}
	return req
}

func TestRoleRequestCreate(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "reader")

	req := &model.RoleRequest{UserID: user.ID, Role: model.RoleWriter, Status: model.StatusAccepted}
	if err := db.RoleRequests().Create(context.Background(), req); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if req.ID == 0 {
		t.Error("Create() did not set ID")
	}
	if req.Status != model.StatusPending {
		t.Errorf("Status = %q, want PENDING", req.Status)
	}
}

func TestRoleRequestCreate_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	err := db.RoleRequests().Create(context.Background(), &model.RoleRequest{UserID: 42, Role: model.RoleWriter})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestRoleRequestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.RoleRequests().GetByID(context.Background(), 7)
	if !errors.Is(err, apperror.ErrRequestNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrRequestNotFound", err)
	}
}

func TestRoleRequestListByStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "a")
	b := createTestUser(t, db, "b")

	r1 := createTestRequest(t, db, a.ID, model.RoleWriter)
	r2 := createTestRequest(t, db, b.ID, model.RoleWriter)
	r3 := createTestRequest(t, db, a.ID, model.RoleAdmin)

	if err := db.RoleRequests().ApplyDecision(ctx, r2, model.StatusRejected); err != nil {
		t.Fatalf("ApplyDecision() error = %v", err)
	}

	pending, err := db.RoleRequests().ListByStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != r1.ID || pending[1].ID != r3.ID {
		t.Errorf("ListByStatus(PENDING) = %+v, want requests %d and %d", pending, r1.ID, r3.ID)
	}

	accepted, err := db.RoleRequests().ListByStatus(ctx, model.StatusAccepted)
	if err != nil {
		t.Fatalf("ListByStatus() error = %v", err)
	}
	if accepted == nil || len(accepted) != 0 {
		t.Errorf("ListByStatus(ACCEPTED) = %#v, want empty non-nil slice", accepted)
	}
}

// =========================================================================
// APPLY DECISION TESTS
// =========================================================================

func TestApplyDecision_AcceptGrantsRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "hopeful")
	req := createTestRequest(t, db, user.ID, model.RoleWriter)

	if err := db.RoleRequests().ApplyDecision(ctx, req, model.StatusAccepted); err != nil {
		t.Fatalf("ApplyDecision() error = %v", err)
	}
	if req.Status != model.StatusAccepted {
		t.Errorf("req.Status = %q, want ACCEPTED", req.Status)
	}

	stored, _ := db.RoleRequests().GetByID(ctx, req.ID)
	if stored.Status != model.StatusAccepted {
		t.Errorf("stored status = %q, want ACCEPTED", stored.Status)
	}
	got, _ := db.Users().GetUserByID(ctx, user.ID)
	if got.Role != model.RoleWriter {
		t.Errorf("user role = %q, want WRITER", got.Role)
	}
}

func TestApplyDecision_RejectKeepsRole(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "hopeful")
	req := createTestRequest(t, db, user.ID, model.RoleWriter)

	if err := db.RoleRequests().ApplyDecision(ctx, req, model.StatusRejected); err != nil {
		t.Fatalf("ApplyDecision() error = %v", err)
	}
	got, _ := db.Users().GetUserByID(ctx, user.ID)
	if got.Role != model.RoleReader {
		t.Errorf("user role = %q, want READER", got.Role)
	}
}

func TestApplyDecision_AlreadyProcessed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "hopeful")
	req := createTestRequest(t, db, user.ID, model.RoleWriter)

	if err := db.RoleRequests().ApplyDecision(ctx, req, model.StatusRejected); err != nil {
		t.Fatalf("first ApplyDecision() error = %v", err)
	}

	// A stale copy still saying PENDING must not flip the decision.
	stale := *req
	stale.Status = model.StatusPending
	err := db.RoleRequests().ApplyDecision(ctx, &stale, model.StatusAccepted)
	if !errors.Is(err, apperror.ErrRequestAlreadyProcessed) {
		t.Fatalf("second ApplyDecision() error = %v, want ErrRequestAlreadyProcessed", err)
	}

	got, _ := db.Users().GetUserByID(ctx, user.ID)
	if got.Role != model.RoleReader {
		t.Errorf("user role = %q, want READER", got.Role)
	}
}

func TestApplyDecision_InvalidDecision(t *testing.T) {
	db := newTestDB(t)
	err := db.RoleRequests().ApplyDecision(context.Background(), &model.RoleRequest{ID: 1}, model.StatusPending)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("ApplyDecision(PENDING) error = %v, want ErrValidation", err)
	}
}

// Concurrent resolutions of one request: exactly one wins.
func TestApplyDecision_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "contested")
	req := createTestRequest(t, db, user.ID, model.RoleWriter)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		processed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			copyReq := *req
			decision := model.StatusAccepted
			if i%2 == 1 {
				decision = model.StatusRejected
			}
			err := db.RoleRequests().ApplyDecision(ctx, &copyReq, decision)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperror.ErrRequestAlreadyProcessed):
				processed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || processed != workers-1 {
		t.Errorf("successes = %d, already processed = %d; want 1 and %d", successes, processed, workers-1)
	}
}

// When the role update fails the status change must be rolled back.
func TestApplyDecision_RollsBackOnRoleUpdateFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := newWithConn(sqlx.NewDb(mockDB, "sqlmock"), sqliteDialect)
	req := &model.RoleRequest{ID: 5, UserID: 9, Role: model.RoleWriter, Status: model.StatusPending}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE role_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)).
		WithArgs(model.StatusAccepted, sqlmock.AnyArg(), int64(5), model.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`)).
		WithArgs(model.RoleWriter, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = db.RoleRequests().ApplyDecision(context.Background(), req, model.StatusAccepted)

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, model.StatusPending, req.Status, "request must not be mutated on failure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDecision_CommitsBothWrites(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := newWithConn(sqlx.NewDb(mockDB, "sqlmock"), sqliteDialect)
	req := &model.RoleRequest{ID: 5, UserID: 9, Role: model.RoleAdmin, Status: model.StatusPending}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE role_requests SET status = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET role = ?`)).
		WithArgs(model.RoleAdmin, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, db.RoleRequests().ApplyDecision(context.Background(), req, model.StatusAccepted))
	assert.Equal(t, model.StatusAccepted, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
