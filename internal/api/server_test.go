package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/models"
	"github.com/digkill/resumegate/internal/razorpay"
	"github.com/digkill/resumegate/internal/repository"
	"github.com/digkill/resumegate/internal/service"
)

const (
	testKeySecret  = "rzp_test_secret"
	testIdentifier = "a@x.com_999"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	doc   models.DocumentResult
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, _ models.GenerationInput) (*models.DocumentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	doc := g.doc
	return &doc, nil
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type harness struct {
	server    *Server
	http      *httptest.Server
	redis     *miniredis.Miniredis
	store     *repository.EntitlementRepository
	hasher    *identity.Hasher
	generator *stubGenerator
	statuses  map[string]string
}

type harnessOption func(*Options, **RateLimiter, *redis.Client)

func withEnforcedOrigin() harnessOption {
	return func(o *Options, _ **RateLimiter, _ *redis.Client) { o.EnforceOrigin = true }
}

func withRateLimit(capacity int) harnessOption {
	return func(_ *Options, l **RateLimiter, rdb *redis.Client) {
		*l = NewRateLimiter(rdb, capacity, time.Minute)
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := &harness{
		redis:    mr,
		store:    repository.NewEntitlementRepository(rdb),
		statuses: map[string]string{},
		generator: &stubGenerator{doc: models.DocumentResult{
			ResumeSummary:     "Backend engineer",
			ExperienceBullets: [][]string{{"Shipped payments"}},
			CoverLetter:       "Dear team",
			RecruiterInsights: "Strong",
		}},
	}

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		status, ok := h.statuses[id]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": id, "status": status, "amount": 29900})
	}))
	t.Cleanup(provider.Close)

	hasher, err := identity.NewHasher("pepper")
	require.NoError(t, err)
	h.hasher = hasher

	rp := razorpay.NewClient("rzp_test_key", testKeySecret, provider.URL, 5*time.Second, log)
	verifier := service.NewVerificationService(log, hasher, h.store, rp, testKeySecret)
	gateway := service.NewGenerationService(log, hasher, h.store, h.generator, 5*time.Second, service.DefaultLimits())

	options := Options{
		MaxPayloadBytes: 50000,
		Limits:          service.DefaultLimits(),
		AdminUsername:   "admin",
		AdminPassword:   "s3cret",
	}
	var limiter *RateLimiter
	for _, o := range opts {
		o(&options, &limiter, rdb)
	}

	h.server = NewServer(options, log, verifier, gateway, service.NewPlanService(),
		service.NewEntitlementService(hasher, h.store), h.store, limiter)
	h.http = httptest.NewServer(h.server.Handler())
	t.Cleanup(h.http.Close)
	return h
}

func (h *harness) post(t *testing.T, path string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequest(http.MethodPost, h.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(t, req)
}

func (h *harness) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func signedClaim(paymentID, orderID string) map[string]string {
	return map[string]string{
		"identifier":  testIdentifier,
		"paymentId":   paymentID,
		"orderId":     orderID,
		"signature":   razorpay.Sign(orderID, paymentID, testKeySecret),
		"packageType": "RESUME_COVER",
	}
}

func generateBody(extra map[string]any) map[string]any {
	body := map[string]any{
		"identifier": testIdentifier,
		"userData": map[string]any{
			"fullName": "Asha Rao",
			"jobRole":  "Backend Engineer",
			"skills":   []string{"Go"},
		},
	}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestVerifyThenGenerate(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, "/api/verify", signedClaim("pay_1", "ord_1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["credits"])
	assert.Equal(t, "RESUME_COVER", body["packageType"])

	resp, body = h.post(t, "/api/generate", generateBody(nil))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 2, body["remainingCredits"])
	assert.Equal(t, "Dear team", body["coverLetter"])
	assert.NotContains(t, body, "recruiterInsights")

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestGenerateWithoutPayment(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "Payment required: Please complete your purchase.", body["error"])
	assert.Zero(t, h.generator.callCount())
}

func TestGenerateUntilExhausted(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.post(t, "/api/verify", signedClaim("pay_1", "ord_1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for want := 2; want >= 0; want-- {
		resp, body := h.post(t, "/api/generate", generateBody(nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, want, body["remainingCredits"])
	}

	resp, body := h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "No credits remaining.", body["error"])
	assert.Equal(t, 3, h.generator.callCount())
}

func TestReverifyingSpentPaymentKeepsBalance(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.post(t, "/api/verify", signedClaim("pay_1", "ord_1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for i := 0; i < 3; i++ {
		resp, _ = h.post(t, "/api/generate", generateBody(nil))
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := h.post(t, "/api/verify", signedClaim("pay_1", "ord_1"))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.EqualValues(t, 0, body["credits"])

	resp, body = h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "No credits remaining.", body["error"])

	claim := signedClaim("pay_1", "ord_1")
	claim["identifier"] = "someone.else@example.com_1"
	resp, body = h.post(t, "/api/verify", claim)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Security Check Failed: Payment has already been used for a different account.", body["error"])
}

func TestPayloadTooLarge(t *testing.T) {
	h := newHarness(t)

	big := fmt.Sprintf(`{"identifier":"%s","userData":{"fullName":"x","jobRole":"y","summary":"%s"}}`,
		testIdentifier, strings.Repeat("a", 60000))
	resp, body := h.post(t, "/api/generate", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Payload too large", body["error"])
	assert.Zero(t, h.generator.callCount())
}

func TestVerifyFallsBackToStatusLookup(t *testing.T) {
	h := newHarness(t)
	h.statuses["pay_2"] = "captured"

	claim := signedClaim("pay_2", "ord_2")
	claim["signature"] = "not-a-valid-signature"
	resp, body := h.post(t, "/api/verify", claim)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	record, err := h.store.Get(context.Background(), h.hasher.Hash(testIdentifier))
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 3, record.Credits)
}

func TestVerifyRejectsFailedPayment(t *testing.T) {
	h := newHarness(t)
	h.statuses["pay_3"] = "failed"

	resp, body := h.post(t, "/api/verify", map[string]string{
		"identifier":  testIdentifier,
		"paymentId":   "pay_3",
		"packageType": "RESUME_ONLY",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Security Check Failed: Payment status is 'failed', expected 'captured' or 'authorized'.", body["error"])

	record, err := h.store.Get(context.Background(), h.hasher.Hash(testIdentifier))
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestVerifyUnknownPayment(t *testing.T) {
	h := newHarness(t)

	resp, body := h.post(t, "/api/verify", map[string]string{
		"identifier":  testIdentifier,
		"paymentId":   "pay_missing",
		"packageType": "RESUME_ONLY",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Security Check Failed: Razorpay API returned 400: The id provided does not exist", body["error"])
}

func TestVerifyBadRequests(t *testing.T) {
	h := newHarness(t)

	cases := map[string]any{
		"missing payment id": map[string]string{"identifier": testIdentifier, "packageType": "RESUME_ONLY"},
		"unknown package":    map[string]string{"identifier": testIdentifier, "paymentId": "pay_1", "packageType": "GOLD"},
		"invalid json":       `{"identifier":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, _ := h.post(t, "/api/verify", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/api/generate", "/api/verify"} {
		req, err := http.NewRequest(http.MethodGet, h.http.URL+path, nil)
		require.NoError(t, err)
		resp, body := h.do(t, req)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
		assert.Equal(t, "Method Not Allowed", body["error"])
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	}
}

func TestOriginCheck(t *testing.T) {
	h := newHarness(t, withEnforcedOrigin())
	host := strings.TrimPrefix(h.http.URL, "http://")

	resp, body := h.post(t, "/api/generate", generateBody(nil), "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Unauthorized origin", body["error"])

	resp, _ = h.post(t, "/api/generate", generateBody(nil), "Origin", "http://"+host)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode, "requests without Origin pass")

	resp, _ = h.post(t, "/api/generate", generateBody(nil), "Origin", "://bad")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginCheckDisabled(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.post(t, "/api/generate", generateBody(nil), "Origin", "https://evil.example")
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

func TestHoneypot(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), h.hasher.Hash(testIdentifier),
		models.EntitlementRecord{Credits: 3, PackageType: models.PackageBasic}))

	resp, body := h.post(t, "/api/generate", generateBody(map[string]any{"botCheck": "I am a bot"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid submission", body["error"])
	assert.Zero(t, h.generator.callCount())
}

func TestListCaps(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), h.hasher.Hash(testIdentifier),
		models.EntitlementRecord{Credits: 3, PackageType: models.PackageBasic}))

	experience := make([]map[string]string, 11)
	for i := range experience {
		experience[i] = map[string]string{"title": "Dev"}
	}
	body := generateBody(nil)
	body["userData"].(map[string]any)["experience"] = experience

	resp, out := h.post(t, "/api/generate", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "experience")
	assert.Zero(t, h.generator.callCount())
}

func TestMissingUserData(t *testing.T) {
	h := newHarness(t)
	resp, body := h.post(t, "/api/generate", map[string]string{"identifier": testIdentifier})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing required data", body["error"])
}

func TestGeneratorFailureKeepsCredits(t *testing.T) {
	h := newHarness(t)
	hashed := h.hasher.Hash(testIdentifier)
	require.NoError(t, h.store.Set(context.Background(), hashed,
		models.EntitlementRecord{Credits: 3, PackageType: models.PackageBasic}))
	h.generator.err = fmt.Errorf("%w: truncated", models.ErrMalformedDocument)

	resp, body := h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to generate valid content. Please try again.", body["error"])

	record, err := h.store.Get(context.Background(), hashed)
	require.NoError(t, err)
	assert.Equal(t, 3, record.Credits)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, withRateLimit(2))

	for i := 0; i < 2; i++ {
		resp, _ := h.post(t, "/api/generate", generateBody(nil))
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	}
	resp, body := h.post(t, "/api/generate", generateBody(nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.NotEmpty(t, body["error"])

	resp, _ = h.post(t, "/api/verify", map[string]string{"identifier": testIdentifier})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "buckets are per route")
}

func TestAdminLookup(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), h.hasher.Hash(testIdentifier),
		models.EntitlementRecord{Credits: 1, PackageType: models.PackageFull}))

	url := h.http.URL + "/admin/entitlements?identifier=" + testIdentifier
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, _ := h.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "s3cret")
	resp, body := h.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, h.hasher.Hash(testIdentifier), body["hashedId"])
	record := body["record"].(map[string]any)
	assert.EqualValues(t, 1, record["credits"])
}

func TestHealthAndPackages(t *testing.T) {
	h := newHarness(t)

	req, err := http.NewRequest(http.MethodGet, h.http.URL+"/healthz", nil)
	require.NoError(t, err)
	resp, body := h.do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, err = http.Get(h.http.URL + "/api/packages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var plans []service.Plan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plans))
	assert.Len(t, plans, 3)

	h.redis.Close()
	req, err = http.NewRequest(http.MethodGet, h.http.URL+"/healthz", nil)
	require.NoError(t, err)
	resp, _ = h.do(t, req)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHoneypotFilled(t *testing.T) {
	cases := map[string]bool{
		``:        false,
		`null`:    false,
		`false`:   false,
		`""`:      false,
		`0`:       false,
		`"x"`:     true,
		`true`:    true,
		`1`:       true,
		`{"a":1}`: true,
	}
	for raw, want := range cases {
		assert.Equal(t, want, honeypotFilled(json.RawMessage(raw)), raw)
	}
}
