package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(bcrypt.MinCost)
}

func TestHash(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "ordinary password", password: "tania123"},
		{name: "exactly 72 bytes", password: strings.Repeat("a", 72)},
		{name: "73 bytes rejected", password: strings.Repeat("a", 73), wantErr: ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := ps.Hash(tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Hash() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Hash() error = %v", err)
			}
			if !strings.HasPrefix(hash, "$2") {
				t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
			}
		})
	}
}

func TestHash_Salted(t *testing.T) {
	ps := newTestPasswordService()
	h1, _ := ps.Hash("same-password")
	h2, _ := ps.Hash("same-password")
	if h1 == h2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("guto123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		password  string
		wantErr   bool
		wantMatch error
	}{
		{name: "correct", hash: hash, password: "guto123"},
		{name: "wrong", hash: hash, password: "guto124", wantErr: true, wantMatch: ErrPasswordMismatch},
		{name: "empty", hash: hash, password: "", wantErr: true, wantMatch: ErrPasswordMismatch},
		{name: "garbage hash", hash: "not-a-hash", password: "guto123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantMatch != nil && !errors.Is(err, tt.wantMatch) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantMatch)
			}
			if tt.name == "garbage hash" && errors.Is(err, ErrPasswordMismatch) {
				t.Error("a malformed hash must not be reported as a mismatch")
			}
		})
	}
}

func TestVerifyDummy_DoesNotPanic(t *testing.T) {
	ps := newTestPasswordService()
	ps.VerifyDummy("anything")
	ps.VerifyDummy("again")
}
