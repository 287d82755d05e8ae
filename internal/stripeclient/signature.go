package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Tolerance максимально допустимый возраст подписи вебхука.
const Tolerance = 5 * time.Minute

var (
	ErrInvalidHeader    = errors.New("invalid signature header")
	ErrSignatureExpired = errors.New("signature timestamp outside tolerance")
	ErrNoValidSignature = errors.New("no valid signature found")
)

// VerifySignature проверяет заголовок Stripe-Signature для сырого тела
// вебхука. Подпись считается по строке "<timestamp>.<payload>" через
// HMAC-SHA256 на секрете эндпоинта.
func VerifySignature(payload []byte, header, secret string) error {
	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return ErrInvalidHeader
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return ErrInvalidHeader
	}
	if d := time.Since(time.Unix(timestamp, 0)); d > Tolerance || d < -Tolerance {
		return ErrSignatureExpired
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrNoValidSignature
}
