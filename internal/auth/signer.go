package auth

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
)

// AuthTypeOCISignature is reported by OCISigner.AuthenticationType.
const AuthTypeOCISignature = "ociSignature"

// OCISigner signs requests with the OCI HTTP signature scheme using the
// OCI SDK request signer. It satisfies core.Authenticator.
type OCISigner struct {
	TenancyID   string
	UserID      string
	Fingerprint string

	provider common.ConfigurationProvider
	signer   common.HTTPRequestSigner
	now      func() time.Time
}

// NewOCISigner loads the API signing key from keyPath. The passphrase may be
// empty for unencrypted keys.
func NewOCISigner(tenancyID, userID, fingerprint, region, keyPath, passphrase string) (*OCISigner, error) {
	data, err := os.ReadFile(filepath.Clean(keyPath)) // #nosec G304 -- operator supplied key path
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	var pass *string
	if passphrase != "" {
		pass = common.String(passphrase)
	}
	provider := common.NewRawConfigurationProvider(tenancyID, userID, region, fingerprint, string(data), pass)

	s := &OCISigner{
		TenancyID:   tenancyID,
		UserID:      userID,
		Fingerprint: fingerprint,
		provider:    provider,
		signer:      common.DefaultRequestSigner(provider),
		now:         time.Now,
	}
	return s, s.Validate()
}

// AuthenticationType implements core.Authenticator.
func (s *OCISigner) AuthenticationType() string {
	return AuthTypeOCISignature
}

// Validate implements core.Authenticator. It also checks that the key parses.
func (s *OCISigner) Validate() error {
	switch {
	case s.TenancyID == "":
		return fmt.Errorf("tenancy OCID is required")
	case s.UserID == "":
		return fmt.Errorf("user OCID is required")
	case s.Fingerprint == "":
		return fmt.Errorf("key fingerprint is required")
	case s.provider == nil || s.signer == nil:
		return fmt.Errorf("private key is required")
	}
	if _, err := s.provider.PrivateRSAKey(); err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	return nil
}

// KeyID is the keyId parameter of the Authorization header.
func (s *OCISigner) KeyID() string {
	return s.TenancyID + "/" + s.UserID + "/" + s.Fingerprint
}

// Authenticate implements core.Authenticator. It stamps the headers the
// signature covers and lets the SDK signer add the body digest and the
// Authorization header.
func (s *OCISigner) Authenticate(req *http.Request) error {
	if req == nil {
		return fmt.Errorf("request cannot be nil")
	}
	if s.signer == nil {
		return fmt.Errorf("signer is not initialized")
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	req.Header.Set("Date", now().UTC().Format(http.TimeFormat))
	if req.Host == "" {
		req.Host = req.URL.Host
	}

	switch req.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Content-Length", strconv.FormatInt(req.ContentLength, 10))
	}

	if err := s.signer.Sign(req); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}
