package tenancy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// initData entries older than this are rejected to limit replay.
const initDataMaxAge = 24 * time.Hour

var (
	ErrInitDataInvalid = errors.New("telegram init data invalid")
	ErrInitDataExpired = errors.New("telegram init data expired")
)

// TelegramUser is the user object Telegram embeds in Mini App init data.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// VerifyInitData checks the HMAC signature of a Telegram Mini App initData
// string against the bot token and returns the embedded user.
//
// Per the Mini App contract the data-check-string is every key=value pair
// except "hash", sorted by key and joined with newlines, and the signing
// key is HMAC_SHA256("WebAppData", botToken).
func VerifyInitData(initData, botToken string, now time.Time) (TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse init data: %w", ErrInitDataInvalid)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return TelegramUser{}, fmt.Errorf("missing hash: %w", ErrInitDataInvalid)
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return TelegramUser{}, fmt.Errorf("hash mismatch: %w", ErrInitDataInvalid)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("auth_date: %w", ErrInitDataInvalid)
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return TelegramUser{}, ErrInitDataExpired
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return TelegramUser{}, fmt.Errorf("user payload: %w", ErrInitDataInvalid)
	}
	if user.ID == 0 {
		return TelegramUser{}, fmt.Errorf("user id missing: %w", ErrInitDataInvalid)
	}
	return user, nil
}

// SignInitData produces a valid initData string for the given user. Test
// helper; the inverse of VerifyInitData.
func SignInitData(user TelegramUser, botToken string, authDate time.Time) string {
	userJSON, _ := json.Marshal(user)
	values := url.Values{}
	values.Set("user", string(userJSON))
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAF"+strconv.FormatInt(user.ID, 36))

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}
