package supplier

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"CatalogSync/internal/model"
)

const (
	nonceLength   = 16
	nonceAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Signer builds the smx Authorization credential for a single request.
// Every call draws a new timestamp and nonce, so credentials are single use.
type Signer struct {
	AppID     string
	SecretKey string

	now   func() time.Time
	nonce func() (string, error)
}

// NewSigner creates a Signer using the wall clock and crypto/rand nonces.
func NewSigner(appID, secretKey string) *Signer {
	return &Signer{
		AppID:     appID,
		SecretKey: secretKey,
		now:       time.Now,
		nonce:     randomNonce,
	}
}

// Sign returns "smx {appId}:{signature}:{timestamp}:{nonce}". body must be
// the exact bytes that go on the wire.
func (s *Signer) Sign(method, path, query string, body []byte) (string, error) {
	if s.AppID == "" || s.SecretKey == "" {
		return "", fmt.Errorf("%w: vendor app id and secret key must be set", model.ErrConfiguration)
	}
	nonce, err := s.nonce()
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	timestamp := strconv.FormatInt(s.now().Unix(), 10)
	signature := s.signature(strings.ToUpper(method), strings.ToLower(path), query, timestamp, nonce, body)
	return fmt.Sprintf("smx %s:%s:%s:%s", s.AppID, signature, timestamp, nonce), nil
}

func (s *Signer) signature(method, path, query, timestamp, nonce string, body []byte) string {
	message := s.AppID + method + path + query + timestamp + nonce + BodyDigest(body)
	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature carried by credential against the given
// request parts.
func (s *Signer) Verify(credential, method, path, query string, body []byte) bool {
	rest, ok := strings.CutPrefix(credential, "smx ")
	if !ok {
		return false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 4 || parts[0] != s.AppID {
		return false
	}
	want := s.signature(strings.ToUpper(method), strings.ToLower(path), query, parts[2], parts[3], body)
	return hmac.Equal([]byte(want), []byte(parts[1]))
}

// BodyDigest is base64(MD5(body)). An empty body still hashes, giving
// "1B2M2Y8AsgTpgAmY7PhCfg==".
func BodyDigest(body []byte) string {
	sum := md5.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func randomNonce() (string, error) {
	max := big.NewInt(int64(len(nonceAlphabet)))
	b := make([]byte, nonceLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = nonceAlphabet[n.Int64()]
	}
	return string(b), nil
}
