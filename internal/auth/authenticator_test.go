package auth

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tareqmamari/logan-mcp-server/internal/config"
)

func writeTestKey(t *testing.T, pkcs8 bool) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if pkcs8 {
		der, err := x509.MarshalPKCS8PrivateKey(key)
		require.NoError(t, err)
		block = &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	}

	path := filepath.Join(t.TempDir(), "oci_api_key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path, key
}

func TestNew(t *testing.T) {
	keyPath, _ := writeTestKey(t, false)

	tests := []struct {
		name     string
		cfg      config.Config
		wantType string
		wantErr  bool
	}{
		{
			name: "oci signature",
			cfg: config.Config{
				AuthType: config.AuthOCISignature, TenancyID: "ocid1.tenancy", UserID: "ocid1.user",
				Fingerprint: "aa:bb", PrivateKeyPath: keyPath,
			},
			wantType: AuthTypeOCISignature,
		},
		{
			name:    "oci signature without key file",
			cfg:     config.Config{AuthType: config.AuthOCISignature, TenancyID: "t", UserID: "u", Fingerprint: "f", PrivateKeyPath: "/nonexistent.pem"},
			wantErr: true,
		},
		{
			name:     "bearer",
			cfg:      config.Config{AuthType: config.AuthBearer, BearerToken: "token-value"}, // pragma: allowlist secret
			wantType: core.AUTHTYPE_BEARER_TOKEN,
		},
		{
			name:    "bearer without token",
			cfg:     config.Config{AuthType: config.AuthBearer},
			wantErr: true,
		},
		{
			name:     "basic",
			cfg:      config.Config{AuthType: config.AuthBasic, Username: "user", Password: "pass"}, // pragma: allowlist secret
			wantType: core.AUTHTYPE_BASIC,
		},
		{
			name:    "iam is not accepted",
			cfg:     config.Config{AuthType: "iam"},
			wantErr: true,
		},
		{
			name:     "none",
			cfg:      config.Config{AuthType: config.AuthNone},
			wantType: core.AUTHTYPE_NOAUTH,
		},
		{
			name:    "unknown",
			cfg:     config.Config{AuthType: "kerberos"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(&tt.cfg, zap.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, a.Type())
			assert.NoError(t, a.Check())
		})
	}
}

func TestAuthenticate_Bearer(t *testing.T) {
	a, err := New(&config.Config{AuthType: config.AuthBearer, BearerToken: "abc"}, zap.NewNop()) // pragma: allowlist secret
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://logan.example.com/20200601/namespaces/ns", nil)
	require.NoError(t, a.Authenticate(req))
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))

	assert.Error(t, a.Authenticate(nil))
}

var signatureParam = regexp.MustCompile(`(\w+)="([^"]*)"`)

func signatureParams(t *testing.T, header string) map[string]string {
	t.Helper()
	require.True(t, strings.HasPrefix(header, "Signature "), header)
	params := map[string]string{}
	for _, m := range signatureParam.FindAllStringSubmatch(header, -1) {
		params[m[1]] = m[2]
	}
	return params
}

// signingString rebuilds the string covered by an OCI signature.
func signingString(req *http.Request, headers []string) string {
	lines := make([]string, len(headers))
	for i, h := range headers {
		var value string
		switch h {
		case "(request-target)":
			value = strings.ToLower(req.Method) + " " + req.URL.RequestURI()
		case "host":
			value = req.URL.Host
		default:
			value = req.Header.Get(h)
		}
		lines[i] = h + ": " + value
	}
	return strings.Join(lines, "\n")
}

func TestOCISigner_SignsPost(t *testing.T) {
	keyPath, key := writeTestKey(t, true)
	signer, err := NewOCISigner("ocid1.tenancy", "ocid1.user", "aa:bb", "us-ashburn-1", keyPath, "")
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }

	body := []byte(`{"queryString":"*"}`)
	req, _ := http.NewRequest(http.MethodPost,
		"https://logan.example.com/20200601/namespaces/ns/search/actions/query?limit=10", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	require.NoError(t, signer.Authenticate(req))

	assert.Equal(t, "Fri, 14 Mar 2025 09:26:53 GMT", req.Header.Get("Date"))
	sum := sha256.Sum256(body)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), req.Header.Get("X-Content-Sha256"))
	assert.Equal(t, "19", req.Header.Get("Content-Length"))

	params := signatureParams(t, req.Header.Get("Authorization"))
	assert.Equal(t, "ocid1.tenancy/ocid1.user/aa:bb", params["keyId"])
	assert.Equal(t, signer.KeyID(), params["keyId"])
	assert.Equal(t, "rsa-sha256", params["algorithm"])
	headers := strings.Split(params["headers"], " ")
	assert.ElementsMatch(t,
		[]string{"date", "(request-target)", "host", "content-length", "content-type", "x-content-sha256"}, headers)

	signing := signingString(req, headers)
	assert.Contains(t, signing, "(request-target): post /20200601/namespaces/ns/search/actions/query?limit=10")

	sig, err := base64.StdEncoding.DecodeString(params["signature"])
	require.NoError(t, err)
	digest := sha256.Sum256([]byte(signing))
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig))

	// The body is still readable after signing.
	remaining, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, remaining)
}

func TestOCISigner_SignsGetWithoutBodyHeaders(t *testing.T) {
	keyPath, _ := writeTestKey(t, false)
	signer, err := NewOCISigner("t", "u", "f", "", keyPath, "")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://logan.example.com/20200601/namespaces/ns/sources", nil)
	require.NoError(t, signer.Authenticate(req))

	assert.Empty(t, req.Header.Get("X-Content-Sha256"))
	params := signatureParams(t, req.Header.Get("Authorization"))
	assert.ElementsMatch(t, []string{"date", "(request-target)", "host"}, strings.Split(params["headers"], " "))
}

func TestNewOCISigner_BadKey(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not pem", []byte("not pem")},
		{"garbage der", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.pem")
			require.NoError(t, os.WriteFile(path, tt.data, 0o600))
			_, err := NewOCISigner("t", "u", "f", "", path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "private key")
		})
	}
}

func TestOCISigner_Validate(t *testing.T) {
	assert.Error(t, (&OCISigner{}).Validate())
	assert.Error(t, (&OCISigner{TenancyID: "t", UserID: "u", Fingerprint: "f"}).Validate())
	assert.Error(t, (&OCISigner{}).Authenticate(&http.Request{}))
}
