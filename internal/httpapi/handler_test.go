package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/config"
	"rollcall/internal/httpapi"
	"rollcall/internal/session"
)

func newTestRouter(t *testing.T, cfg config.App) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr := session.NewManager(session.NewMemoryStore(), time.Minute)
	r := gin.New()
	httpapi.New(mgr, nil, cfg, nil).Routes(r)
	return r, mgr
}

func testConfig() config.App {
	return config.App{
		JWTIssuer:     "rollcall-test",
		JWTSigningKey: "test-signing-key",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestIndex(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "online" {
		t.Fatalf("status field = %v, want online", body["status"])
	}
	if body["kv_status"] != "connected" {
		t.Fatalf("kv_status = %v, want connected", body["kv_status"])
	}
	if _, ok := body["endpoints"].(map[string]any); !ok {
		t.Fatalf("endpoints missing from %v", body)
	}
}

func TestGetCurrentCode(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodGet, "/api/get-current-code", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	code, _ := decode(t, w)["secret_code"].(string)
	if len(code) != session.CodeLength {
		t.Fatalf("secret_code %q has length %d, want %d", code, len(code), session.CodeLength)
	}

	// Within the window the code must not change.
	w2 := doJSON(r, http.MethodGet, "/api/get-current-code", nil)
	if got, _ := decode(t, w2)["secret_code"].(string); got != code {
		t.Fatalf("code changed between calls: %q then %q", code, got)
	}
}

func TestVerifyAttendanceFlow(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	code, _ := decode(t, doJSON(r, http.MethodGet, "/api/get-current-code", nil))["secret_code"].(string)

	w := doJSON(r, http.MethodPost, "/api/verify-attendance", map[string]string{
		"student_id": "alice", "code": code,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("correct code: status = %d, body %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["status"] != "SUCCESS" {
		t.Fatalf("status field = %v, want SUCCESS", body["status"])
	}

	w = doJSON(r, http.MethodPost, "/api/verify-attendance", map[string]string{
		"student_id": "bob", "code": "WRONG999",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong code: status = %d, want 403", w.Code)
	}
	if decode(t, w)["status"] != "FAILED" {
		t.Fatal("wrong code should report FAILED")
	}

	for _, req := range []map[string]string{
		{"student_id": "", "code": "ABC123"},
		{"student_id": "s1", "code": ""},
		nil,
	} {
		w = doJSON(r, http.MethodPost, "/api/verify-attendance", req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("missing fields %v: status = %d, want 400", req, w.Code)
		}
	}

	w = doJSON(r, http.MethodGet, "/api/get-attendance-log", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("log: status = %d, want 200", w.Code)
	}
	present, _ := decode(t, w)["present_students"].([]any)
	if len(present) != 1 || present[0] != "alice" {
		t.Fatalf("present_students = %v, want [alice]", present)
	}
}

func TestAttendanceLogEmpty(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodGet, "/api/get-attendance-log", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	present, ok := decode(t, w)["present_students"].([]any)
	if !ok || len(present) != 0 {
		t.Fatalf("present_students = %v, want empty array", present)
	}
}

func TestAttendanceLogSorted(t *testing.T) {
	r, mgr := newTestRouter(t, testConfig())
	ctx := context.Background()

	code, err := mgr.ResolveActiveCode(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, id := range []string{"b1", "a2", "c0"} {
		if err := mgr.Submit(ctx, id, code); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	w := doJSON(r, http.MethodGet, "/api/get-attendance-log", nil)
	present, _ := decode(t, w)["present_students"].([]any)
	want := []string{"a2", "b1", "c0"}
	if len(present) != len(want) {
		t.Fatalf("present_students = %v, want %v", present, want)
	}
	for i := range want {
		if present[i] != want[i] {
			t.Fatalf("present_students = %v, want %v", present, want)
		}
	}
}

func TestHistoryUnconfigured(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodGet, "/api/attendance-history", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a database", w.Code)
	}
}

func TestProfessorAuthGatesLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.ProfessorKey = "chalk-dust"

	mgr := session.NewManager(session.NewMemoryStore(), time.Minute)
	r := gin.New()
	httpapi.New(mgr, nil, cfg, nil).Routes(r)

	if w := doJSON(r, http.MethodGet, "/api/get-attendance-log", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}

	w := doJSON(r, http.MethodPost, "/api/professor/login", map[string]string{"passphrase": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad passphrase: status = %d, want 401", w.Code)
	}

	w = doJSON(r, http.MethodPost, "/api/professor/login", map[string]string{"passphrase": "chalk-dust"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["access_token"].(string)
	if token == "" {
		t.Fatal("login returned no access_token")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/get-attendance-log", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestProfessorLoginUnconfigured(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := doJSON(r, http.MethodPost, "/api/professor/login", map[string]string{"passphrase": "x"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when PROFESSOR_KEY unset", w.Code)
	}
}

// downStore fails every operation so handlers exercise the 503 path.
type downStore struct{}

func (downStore) SecretCode(context.Context) (string, error) {
	return "", fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable)
}

func (downStore) SecretTimestamp(context.Context) (float64, error) {
	return 0, fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable)
}

func (downStore) Rotate(context.Context, string, time.Time) error {
	return fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable)
}

func (downStore) AddPresent(context.Context, string) error {
	return fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable)
}

func (downStore) ListPresent(context.Context) ([]string, error) {
	return nil, fmt.Errorf("%w: dial tcp: refused", session.ErrStoreUnavailable)
}

func TestStoreDownIs503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := session.NewManager(downStore{}, time.Minute)
	r := gin.New()
	httpapi.New(mgr, nil, testConfig(), func(context.Context) bool { return false }).Routes(r)

	// No fabricated placeholder code: the store being down is an error.
	if w := doJSON(r, http.MethodGet, "/api/get-current-code", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("get-current-code: status = %d, want 503", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/api/verify-attendance", map[string]string{"student_id": "s1", "code": "ABCD1234"}); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("verify-attendance: status = %d, want 503", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/api/get-attendance-log", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("get-attendance-log: status = %d, want 503", w.Code)
	}
	if w := doJSON(r, http.MethodGet, "/healthz", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("healthz: status = %d, want 503", w.Code)
	}

	body := decode(t, doJSON(r, http.MethodGet, "/", nil))
	if body["kv_status"] != "disconnected" {
		t.Fatalf("kv_status = %v, want disconnected", body["kv_status"])
	}
}
