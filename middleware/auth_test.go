package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/fencing-club/models"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestAuthenticate(t *testing.T) {
	var got models.Actor
	handler := Authenticate(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	valid := sign(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "instructor", "exp": time.Now().Add(time.Hour).Unix()})
	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusNoContent},
		{"query token", "", valid, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + sign(t, []byte("other"), jwt.MapClaims{"user_id": 7, "role": "admin"}), "", http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}), "", http.StatusUnauthorized},
		{"unknown role", "Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "organizer"}), "", http.StatusUnauthorized},
		{"bad user id", "Bearer " + sign(t, testSecret, jwt.MapClaims{"user_id": -1, "role": "athlete"}), "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = models.Actor{}
			target := "/tournaments"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusNoContent && (got.ID != 7 || got.Role != models.RoleInstructor) {
				t.Fatalf("actor = %+v", got)
			}
		})
	}
}
