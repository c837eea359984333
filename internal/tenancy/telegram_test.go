package tenancy

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testBotToken = "123456:test-bot-token"

func TestVerifyInitDataRoundTrip(t *testing.T) {
	user := TelegramUser{ID: 42, FirstName: "Ada", Username: "ada"}
	now := time.Now()

	initData := SignInitData(user, testBotToken, now)

	got, err := VerifyInitData(initData, testBotToken, now)
	if err != nil {
		t.Fatalf("VerifyInitData() error = %v", err)
	}
	if got != user {
		t.Errorf("VerifyInitData() = %+v, want %+v", got, user)
	}
}

func TestVerifyInitDataRejectsTampering(t *testing.T) {
	user := TelegramUser{ID: 42, FirstName: "Ada"}
	now := time.Now()

	tests := []struct {
		name     string
		initData string
		wantErr  error
	}{
		{
			name:     "wrong bot token",
			initData: SignInitData(user, "999:other-token", now),
			wantErr:  ErrInitDataInvalid,
		},
		{
			name:     "modified payload",
			initData: strings.Replace(SignInitData(user, testBotToken, now), "Ada", "Eve", 1),
			wantErr:  ErrInitDataInvalid,
		},
		{
			name:     "missing hash",
			initData: "auth_date=123&user=%7B%22id%22%3A42%7D",
			wantErr:  ErrInitDataInvalid,
		},
		{
			name:     "stale auth date",
			initData: SignInitData(user, testBotToken, now.Add(-25*time.Hour)),
			wantErr:  ErrInitDataExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyInitData(tt.initData, testBotToken, now)
			if err == nil {
				t.Fatal("VerifyInitData() succeeded, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyInitData() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVerifyInitDataRejectsZeroUserID(t *testing.T) {
	initData := SignInitData(TelegramUser{FirstName: "Nobody"}, testBotToken, time.Now())
	if _, err := VerifyInitData(initData, testBotToken, time.Now()); !errors.Is(err, ErrInitDataInvalid) {
		t.Errorf("VerifyInitData() error = %v, want ErrInitDataInvalid", err)
	}
}
