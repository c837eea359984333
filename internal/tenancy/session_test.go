package tenancy

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionsIssueAndVerify(t *testing.T) {
	sessions := NewSessions("0123456789abcdef0123456789abcdef", time.Hour)
	userID := uuid.New()

	token, err := sessions.Issue(userID, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != userID {
		t.Errorf("Verify() = %v, want %v", got, userID)
	}
}

func TestSessionsVerifyRejections(t *testing.T) {
	sessions := NewSessions("0123456789abcdef0123456789abcdef", time.Hour)
	other := NewSessions("fedcba9876543210fedcba9876543210", time.Hour)
	userID := uuid.New()

	valid, err := sessions.Issue(userID, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	expired, err := sessions.Issue(userID, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", mustIssue(t, other, userID)},
		{"expired", expired},
		{"truncated", valid[:len(valid)-5]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sessions.Verify(tt.token); !errors.Is(err, ErrSessionInvalid) {
				t.Errorf("Verify() error = %v, want ErrSessionInvalid", err)
			}
		})
	}
}

func mustIssue(t *testing.T, s *Sessions, userID uuid.UUID) string {
	t.Helper()
	token, err := s.Issue(userID, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}
