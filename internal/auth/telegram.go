// Package auth verifies Telegram login widget payloads and issues the JWTs
// that protect the /api routes.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHash = errors.New("hash is missing")
	ErrBadHash     = errors.New("hash does not match")
	ErrExpired     = errors.New("auth_date is too old")
)

// dataCheckString joins the sorted key=value pairs, hash excluded, with newlines.
func dataCheckString(data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+data[k])
	}
	return strings.Join(lines, "\n")
}

// SignLogin computes the hash Telegram attaches to a login payload.
func SignLogin(data map[string]string, botToken string) string {
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(dataCheckString(data)))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckTelegramAuth reports whether data carries a valid login widget hash.
func CheckTelegramAuth(data map[string]string, botToken string) bool {
	return VerifyLogin(data, botToken, 0, time.Now()) == nil
}

// VerifyLogin checks the hash and, when maxAge is positive, that auth_date
// is no older than maxAge.
func VerifyLogin(data map[string]string, botToken string, maxAge time.Duration, now time.Time) error {
	got, ok := data["hash"]
	if !ok || got == "" {
		return ErrMissingHash
	}
	want := SignLogin(data, botToken)
	if !hmac.Equal([]byte(strings.ToLower(got)), []byte(want)) {
		return ErrBadHash
	}
	if maxAge <= 0 {
		return nil
	}
	ts, err := strconv.ParseInt(data["auth_date"], 10, 64)
	if err != nil || now.Sub(time.Unix(ts, 0)) > maxAge {
		return ErrExpired
	}
	return nil
}
