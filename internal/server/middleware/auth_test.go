package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"user-account-service/internal/security"
)

type errorEnvelope struct {
	Error struct {
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return env
}

func accessToken(t *testing.T, codec *security.TokenCodec, email string) string {
	t.Helper()
	tok, err := codec.Generate(security.Claims{UserID: "user-1", Email: email, Role: "customer", Type: string(security.KindAccess)}, security.KindAccess)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return tok
}

func TestAuthenticate(t *testing.T) {
	codec := security.NewTestCodec()
	refresh, err := codec.Generate(security.Claims{UserID: "user-1", Type: string(security.KindRefresh)}, security.KindRefresh)
	if err != nil {
		t.Fatalf("Generate refresh: %v", err)
	}
	noEmail, err := codec.Generate(security.Claims{UserID: "user-1", Type: string(security.KindAccess)}, security.KindAccess)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	valid := accessToken(t, codec, "jane@example.com")

	testCases := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{"missing header", "", http.StatusUnauthorized, "Valid JWT token needed to access this api"},
		{"basic scheme", "Basic abc", http.StatusUnauthorized, "Valid JWT token needed to access this api"},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, "Valid JWT token needed to access this api"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, "Incorrect token."},
		{"access token without email", "Bearer " + noEmail, http.StatusUnauthorized, "Incorrect token."},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
		{"lower-case scheme", "bearer " + valid, http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var gotEmail string
			h := Authenticate(codec, false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if c, ok := GetClaims(r.Context()); ok {
					gotEmail = c.Email
				}
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/users/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantMessage != "" {
				if got := decodeError(t, rec).Error.Message; got != tc.wantMessage {
					t.Errorf("message = %q, want %q", got, tc.wantMessage)
				}
				return
			}
			if gotEmail != "jane@example.com" {
				t.Errorf("claims email = %q, want jane@example.com", gotEmail)
			}
		})
	}
}

func TestResolveCaller(t *testing.T) {
	codec := security.NewTestCodec()
	token := accessToken(t, codec, "jane@example.com")

	testCases := []struct {
		name        string
		lookup      CallerLookup
		wantStatus  int
		wantMessage string
	}{
		{
			name: "found",
			lookup: func(_ context.Context, email string) (*Caller, error) {
				return &Caller{ID: "user-1", Email: email, Role: "admin"}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name:        "gone",
			lookup:      func(context.Context, string) (*Caller, error) { return nil, nil },
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "User with the given email not exists",
		},
		{
			name:        "store failure",
			lookup:      func(context.Context, string) (*Caller, error) { return nil, errors.New("connection reset") },
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Internal Server Error",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got Caller
			final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetCaller(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			h := Authenticate(codec, false, nil)(ResolveCaller(tc.lookup, false, nil)(final))
			req := httptest.NewRequest(http.MethodGet, "/users/abc", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if tc.wantMessage != "" {
				if msg := decodeError(t, rec).Error.Message; msg != tc.wantMessage {
					t.Errorf("message = %q, want %q", msg, tc.wantMessage)
				}
				return
			}
			if got.ID != "user-1" || got.Role != "admin" {
				t.Errorf("caller = %+v, want user-1/admin", got)
			}
		})
	}
}

func TestResolveCaller_WithoutClaims(t *testing.T) {
	h := ResolveCaller(func(context.Context, string) (*Caller, error) {
		t.Error("lookup should not be called without claims")
		return nil, nil
	}, false, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestClientIPMiddleware(t *testing.T) {
	testCases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := ClientIPMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = ClientIP(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
	if got := ClientIP(context.Background()); got != "unknown" {
		t.Errorf("ClientIP(empty) = %q, want unknown", got)
	}
}
