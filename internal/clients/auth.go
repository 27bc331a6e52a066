package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/models"
	"enclave-sdk/internal/sdkerr"
	"enclave-sdk/internal/signer"
	"enclave-sdk/internal/types"
)

const stepLogin = "login"

// GetNonce fetches a login challenge.
func (c *APIClient) GetNonce(ctx context.Context) (*dto.NonceResponse, error) {
	var resp dto.NonceResponse
	err := c.do(ctx, request{method: http.MethodGet, endpoint: "/api/auth/nonce", path: "/api/auth/nonce"}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Message == "" {
		return nil, sdkerr.New(sdkerr.KindTransport, stepLogin, fmt.Errorf("nonce response without message"))
	}
	return &resp, nil
}

// Login signs the nonce message with s and stores the returned JWT.
// The token is parsed without verification: the client only needs its
// claims, the backend verifies the signature on every request.
func (c *APIClient) Login(ctx context.Context, s signer.Signer) (*dto.JWTClaims, error) {
	nonce, err := c.GetNonce(ctx)
	if err != nil {
		return nil, err
	}
	address, err := s.Address(ctx)
	if err != nil {
		return nil, signerError(stepLogin, err)
	}
	signature, err := s.SignMessage(ctx, nonce.Message)
	if err != nil {
		return nil, signerError(stepLogin, err)
	}

	var resp dto.AuthResponse
	err = c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/auth/login",
		path:     "/api/auth/login",
		body: types.AuthLoginRequest{
			UserAddress: address,
			Message:     nonce.Message,
			Signature:   signature,
			ChainID:     int(s.ChainID()),
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		return nil, sdkerr.New(sdkerr.KindTransport, stepLogin, fmt.Errorf("login rejected: %s", resp.Message))
	}

	claims, err := ParseToken(resp.Token)
	if err != nil {
		return nil, sdkerr.New(sdkerr.KindTransport, stepLogin, err)
	}
	c.setAuth(resp.Token, claims)
	c.log.WithFields(logrus.Fields{
		"user_address": claims.UserAddress,
		"chain_id":     claims.ChainID,
	}).Info("[API] logged in")
	return claims, nil
}

// signerError keeps a user rejection distinguishable from other signer failures.
func signerError(step string, err error) error {
	if signer.KindOf(err) == signer.KindUserRejected {
		return sdkerr.New(sdkerr.KindUserRejected, step, err)
	}
	return sdkerr.New(sdkerr.KindSigner, step, err)
}

// ParseToken reads the claims of a JWT without verifying its signature.
func ParseToken(token string) (*dto.JWTClaims, error) {
	claims := &dto.JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("invalid auth token: %w", err)
	}
	return claims, nil
}

// SetToken installs an existing JWT, e.g. one restored from disk.
func (c *APIClient) SetToken(token string) error {
	if token == "" {
		c.setAuth("", nil)
		return nil
	}
	claims, err := ParseToken(token)
	if err != nil {
		return err
	}
	c.setAuth(token, claims)
	return nil
}

func (c *APIClient) setAuth(token string, claims *dto.JWTClaims) {
	c.authMu.Lock()
	c.token, c.claims = token, claims
	c.authMu.Unlock()
}

// Token returns the current JWT, or "".
func (c *APIClient) Token() string {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.token
}

// Claims returns the claims of the current JWT, or nil.
func (c *APIClient) Claims() *dto.JWTClaims {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.claims
}

// TokenExpiresWithin reports whether there is no token or it expires within d.
// Tokens without an exp claim never expire.
func (c *APIClient) TokenExpiresWithin(d time.Duration) bool {
	claims := c.Claims()
	if claims == nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) <= d
}

// Owner returns the authenticated user's universal address.
func (c *APIClient) Owner() (models.UniversalAddress, error) {
	claims := c.Claims()
	if claims == nil {
		return models.UniversalAddress{}, sdkerr.Precondition("owner", nil, "not logged in")
	}
	return claims.Owner()
}

// EnsureLogin logs in again when the token is missing or expires within margin.
func (c *APIClient) EnsureLogin(ctx context.Context, s signer.Signer, margin time.Duration) error {
	if !c.TokenExpiresWithin(margin) {
		return nil
	}
	_, err := c.Login(ctx, s)
	return err
}
