package supplier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"CatalogSync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSigner(ts int64, nonce string) *Signer {
	s := NewSigner("app-42", "top-secret")
	s.now = func() time.Time { return time.Unix(ts, 0) }
	s.nonce = func() (string, error) { return nonce, nil }
	return s
}

func TestBodyDigest_EmptyBody(t *testing.T) {
	assert.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", BodyDigest(nil))
	assert.Equal(t, "1B2M2Y8AsgTpgAmY7PhCfg==", BodyDigest([]byte{}))
}

func TestSign_KnownMessage(t *testing.T) {
	s := fixedSigner(1700000000, "AbCdEfGh12345678")

	got, err := s.Sign("get", "/Full_Catalog", "?x=1", nil)
	require.NoError(t, err)

	message := "app-42" + "GET" + "/full_catalog" + "?x=1" + "1700000000" + "AbCdEfGh12345678" + "1B2M2Y8AsgTpgAmY7PhCfg=="
	mac := hmac.New(sha256.New, []byte("top-secret"))
	mac.Write([]byte(message))
	want := "smx app-42:" + base64.StdEncoding.EncodeToString(mac.Sum(nil)) + ":1700000000:AbCdEfGh12345678"

	assert.Equal(t, want, got)
}

func TestSign_FreshNonceAndTimestamp(t *testing.T) {
	s := NewSigner("app-42", "top-secret")
	calls := int64(0)
	s.now = func() time.Time { calls++; return time.Unix(1700000000+calls, 0) }

	a, err := s.Sign("GET", "/full_catalog", "", nil)
	require.NoError(t, err)
	b, err := s.Sign("GET", "/full_catalog", "", nil)
	require.NoError(t, err)

	pa := strings.Split(strings.TrimPrefix(a, "smx "), ":")
	pb := strings.Split(strings.TrimPrefix(b, "smx "), ":")
	require.Len(t, pa, 4)
	require.Len(t, pb, 4)
	assert.NotEqual(t, pa[1], pb[1], "signatures must differ")
	assert.NotEqual(t, pa[2], pb[2], "timestamps must differ")
	assert.NotEqual(t, pa[3], pb[3], "nonces must differ")
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{16}$`), pa[3])
}

func TestVerify_BodyTampering(t *testing.T) {
	s := NewSigner("app-42", "top-secret")
	body := []byte(`{"part":"A-1","qty":2}`)

	cred, err := s.Sign("POST", "/place_order", "", body)
	require.NoError(t, err)
	assert.True(t, s.Verify(cred, "POST", "/place_order", "", body))

	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-2] = '3'
	assert.False(t, s.Verify(cred, "POST", "/place_order", "", tampered))
	assert.False(t, s.Verify(cred, "POST", "/place_order", "?a=b", body))
	assert.False(t, NewSigner("app-42", "other").Verify(cred, "POST", "/place_order", "", body))
}

func TestSign_MissingCredentials(t *testing.T) {
	for _, s := range []*Signer{NewSigner("", "key"), NewSigner("app", "")} {
		_, err := s.Sign("GET", "/", "", nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConfiguration))
	}
}
