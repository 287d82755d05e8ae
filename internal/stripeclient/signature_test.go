package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, ts time.Time, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)

	tests := []struct {
		name        string
		header      func(t *testing.T) string
		expectedErr error
	}{
		{
			name: "валидная подпись",
			header: func(t *testing.T) string {
				return signedHeader(t, payload, time.Now(), testSecret)
			},
			expectedErr: nil,
		},
		{
			name: "подпись с чужим секретом",
			header: func(t *testing.T) string {
				return signedHeader(t, payload, time.Now(), "whsec_other")
			},
			expectedErr: ErrNoValidSignature,
		},
		{
			name: "просроченная метка времени",
			header: func(t *testing.T) string {
				return signedHeader(t, payload, time.Now().Add(-10*time.Minute), testSecret)
			},
			expectedErr: ErrSignatureExpired,
		},
		{
			name: "метка времени из будущего",
			header: func(t *testing.T) string {
				return signedHeader(t, payload, time.Now().Add(10*time.Minute), testSecret)
			},
			expectedErr: ErrSignatureExpired,
		},
		{
			name: "заголовок без подписи",
			header: func(t *testing.T) string {
				return fmt.Sprintf("t=%d", time.Now().Unix())
			},
			expectedErr: ErrInvalidHeader,
		},
		{
			name: "заголовок без метки времени",
			header: func(t *testing.T) string {
				return "v1=deadbeef"
			},
			expectedErr: ErrInvalidHeader,
		},
		{
			name: "мусор вместо заголовка",
			header: func(t *testing.T) string {
				return "not-a-signature"
			},
			expectedErr: ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(payload, tt.header(t), testSecret)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestVerifySignature_SecondSignatureAccepted(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	valid := signedHeader(t, payload, time.Now(), testSecret)
	// Stripe может прислать несколько v1 при ротации секрета.
	header := valid + ",v1=0000000000000000000000000000000000000000000000000000000000000000"

	assert.NoError(t, VerifySignature(payload, header, testSecret))
}

func TestVerifySignature_PayloadTampered(t *testing.T) {
	payload := []byte(`{"id":"evt_3"}`)
	header := signedHeader(t, payload, time.Now(), testSecret)

	tampered := []byte(`{"id":"evt_3","amount":999}`)
	assert.ErrorIs(t, VerifySignature(tampered, header, testSecret), ErrNoValidSignature)
}
