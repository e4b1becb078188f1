package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	credentialhandler "zeropass/internal/credential/handler"
	credentialservice "zeropass/internal/credential/service"
	credentialstore "zeropass/internal/credential/store"
	jwttoken "zeropass/internal/jwt_token"
	"zeropass/internal/payment"
	"zeropass/internal/platform/health"
	proofhandler "zeropass/internal/proof/handler"
	proofservice "zeropass/internal/proof/service"
	proofstore "zeropass/internal/proof/store"
	ratelimitconfig "zeropass/internal/ratelimit/config"
	ratelimitmw "zeropass/internal/ratelimit/middleware"
	ratelimitservice "zeropass/internal/ratelimit/service"
	"zeropass/internal/ratelimit/store/bucket"
	"zeropass/pkg/platform/audit"
	outboxmemory "zeropass/pkg/platform/audit/outbox/store/memory"
	"zeropass/pkg/testutil"
)

const testSecret = "router-test-secret"

type RouterSuite struct {
	suite.Suite
	router http.Handler
	signer *jwttoken.DevSigner
	outbox *outboxmemory.Store
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.outbox = outboxmemory.New()
	publisher := audit.NewPublisher(s.outbox)

	limiter, err := ratelimitservice.New(bucket.NewInMemoryBucketStore(),
		ratelimitservice.WithConfig(ratelimitconfig.DefaultConfig().WithProofVerifyLimit(2, time.Minute)),
	)
	s.Require().NoError(err)

	credentials := credentialstore.NewInMemory()
	credSvc := credentialservice.New(credentials, payment.New(true), publisher)
	proofSvc := proofservice.New(credentials, proofstore.NewInMemory(), publisher,
		proofservice.WithRateLimiter(limiter),
	)

	verifier, err := jwttoken.NewHS256Verifier(testSecret)
	s.Require().NoError(err)
	s.signer = jwttoken.NewDevSigner(testSecret, "")

	s.router = NewRouter(Deps{
		Logger:      logger,
		Health:      health.New("test"),
		Credentials: credentialhandler.New(credSvc, logger),
		Proofs:      proofhandler.New(proofSvc, logger),
		Tokens:      verifier,
		RateLimits:  ratelimitmw.New(limiter, logger),
		Gatherer:    prometheus.NewRegistry(),
		Clock:       func() time.Time { return now },
	})
}

func (s *RouterSuite) token() string {
	tok, err := s.signer.Sign(context.Background(), testutil.TestIDs.UserID1, "sess_1", time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *RouterSuite) TestProbesAndMetrics() {
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/live", "", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/health/ready", "", "").Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/metrics", "", "").Code)
}

func (s *RouterSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/credential/status", "/credential/revoke", "/proof/generate", "/kyc/submit"} {
		method := http.MethodPost
		if path == "/credential/status" {
			method = http.MethodGet
		}
		rec := s.do(method, path, "", "")
		s.Equal(http.StatusUnauthorized, rec.Code, path)
	}

	rec := s.do(http.MethodGet, "/credential/status", "", "not-a-jwt")
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterSuite) TestCredentialAndProofFlow() {
	token := s.token()
	wallet := string(testutil.TestIDs.Wallet1)

	rec := s.do(http.MethodGet, "/credential/status", "", token)
	s.Require().Equal(http.StatusOK, rec.Code)
	var status map[string]any
	s.decode(rec, &status)
	s.Equal("NONE", status["status"])

	submit := `{"wallet_address":"` + wallet + `","full_name":"Ada Lovelace","date_of_birth":"1990-12-10",` +
		`"country":"GB","document_type":"passport","transaction_hash":"0xabc123"}`
	rec = s.do(http.MethodPost, "/kyc/submit", submit, token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.NotEmpty(rec.Header().Get("X-RateLimit-Limit"))
	var cred map[string]any
	s.decode(rec, &cred)
	s.Equal("VERIFIED", cred["status"])

	rec = s.do(http.MethodGet, "/credential/wallet/"+wallet, "", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var walletStatus map[string]any
	s.decode(rec, &walletStatus)
	s.Equal("VERIFIED", walletStatus["status"])

	rec = s.do(http.MethodPost, "/proof/generate", "", token)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var generated map[string]any
	s.decode(rec, &generated)
	payload, _ := generated["payload"].(string)
	s.Require().True(strings.HasPrefix(payload, "zp://verify?"))

	body, err := json.Marshal(map[string]string{"payload": payload})
	s.Require().NoError(err)

	rec = s.do(http.MethodPost, "/proof/verify", string(body), "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var verified map[string]any
	s.decode(rec, &verified)
	s.Equal(true, verified["valid"])

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/proof/verify", string(body), "").Code)

	rec = s.do(http.MethodPost, "/proof/verify", string(body), "")
	s.Equal(http.StatusTooManyRequests, rec.Code)
	var limited map[string]any
	s.decode(rec, &limited)
	s.Equal("RATE_LIMITED", limited["reason"])

	entries, err := s.outbox.FetchUnprocessed(context.Background(), 100)
	s.Require().NoError(err)
	s.NotEmpty(entries)
}

func (s *RouterSuite) TestUnknownRouteIsNotFound() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/nope", "", "").Code)
}
