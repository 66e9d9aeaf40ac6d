// Package e2e drives a running immo server through its HTTP API with godog
// scenarios. Set E2E_BASE_URL to enable the suite.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext holds the state of one scenario: the caller identity, the last
// response and ids captured along the way.
type TestContext struct {
	baseURL    string
	signingKey string
	issuer     string
	audience   string
	client     *http.Client

	userID   string
	clientID string
	roles    []string
	token    string

	lastStatus  int
	lastBody    []byte
	lastHeaders http.Header
	vars        map[string]string
}

func NewTestContext() *TestContext {
	return &TestContext{
		baseURL:    strings.TrimRight(getenv("E2E_BASE_URL", "http://localhost:8080"), "/"),
		signingKey: getenv("E2E_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		issuer:     getenv("E2E_JWT_ISSUER", "immo"),
		audience:   getenv("E2E_JWT_AUDIENCE", "immo-api"),
		client:     &http.Client{Timeout: 10 * time.Second},
		vars:       make(map[string]string),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.userID, tc.clientID, tc.token = "", "", ""
	tc.roles = nil
	tc.lastStatus, tc.lastBody, tc.lastHeaders = 0, nil, nil
	tc.vars = make(map[string]string)
}

// AuthenticateAs mints a token for a fresh user with role. Clients get a
// client id of their own unless keepClient is set and one already exists.
func (tc *TestContext) AuthenticateAs(role string, keepClient bool) error {
	role = strings.ToUpper(role)
	tc.userID = uuid.NewString()
	tc.roles = []string{role}
	if role == "CLIENT" {
		if !keepClient || tc.clientID == "" {
			tc.clientID = uuid.NewString()
		}
	}
	claims := jwt.MapClaims{
		"sub":   tc.userID,
		"roles": tc.roles,
		"iss":   tc.issuer,
		"aud":   tc.audience,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if role == "CLIENT" {
		claims["client_id"] = tc.clientID
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.signingKey))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	tc.token = token
	return nil
}

func (tc *TestContext) ClearAuth() {
	tc.token = ""
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeaders = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// Expand substitutes {name} placeholders with captured values.
func (tc *TestContext) Expand(s string) string {
	for k, v := range tc.vars {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

func (tc *TestContext) LastBody() []byte { return tc.lastBody }

func (tc *TestContext) LastHeader(k string) string { return tc.lastHeaders.Get(k) }

// ResponseField returns a field of the last JSON response. Nested objects
// are addressed with dots, e.g. "reservation.status".
func (tc *TestContext) ResponseField(field string) (any, error) {
	var v any
	if err := json.Unmarshal(tc.lastBody, &v); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w: %s", err, tc.lastBody)
	}
	for _, part := range strings.Split(field, ".") {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
		}
		if v, ok = m[part]; !ok {
			return nil, fmt.Errorf("response has no field %q: %s", field, tc.lastBody)
		}
	}
	return v, nil
}

// Capture stores a string response field under name for later {name} use.
func (tc *TestContext) Capture(field, name string) error {
	v, err := tc.ResponseField(field)
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("field %q is %T, not a string", field, v)
	}
	tc.vars[name] = s
	return nil
}

func (tc *TestContext) Set(name, value string) { tc.vars[name] = value }
func (tc *TestContext) Var(name string) string { return tc.vars[name] }
