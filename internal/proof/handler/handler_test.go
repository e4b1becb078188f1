package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	credmodels "zeropass/internal/credential/models"
	"zeropass/internal/proof/handler/mocks"
	"zeropass/internal/proof/models"
	id "zeropass/pkg/domain"
	dErrors "zeropass/pkg/domain-errors"
	"zeropass/pkg/requestcontext"
	"zeropass/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      http.Handler
	now         time.Time
	userID      id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.now = time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)
	s.userID = testutil.TestIDs.UserID1

	h := New(s.mockService, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), s.now)
			if r.Header.Get("X-Test-Anonymous") == "" {
				ctx = requestcontext.WithUserID(ctx, s.userID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(r)
	h.RegisterPublic(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(path string, body any, anonymous bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if anonymous {
		req.Header.Set("X-Test-Anonymous", "1")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestGenerate() {
	s.Run("returns payload", func() {
		expires := s.now.Add(24 * time.Hour)
		s.mockService.EXPECT().Generate(gomock.Any(), s.userID).Return(&models.GenerateResult{
			Payload:      "zp://verify?wallet=0xab&cred=zpc_1&commitment=0xcd",
			Commitment:   "0xcd",
			CredentialID: "zpc_1",
			ExpiresAt:    &expires,
		}, nil)

		rec := s.do("/proof/generate", nil, false)
		s.Equal(http.StatusOK, rec.Code)

		var resp GenerateProofResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.Equal("0xcd", resp.Commitment)
		s.Equal("zpc_1", resp.CredentialID)
		s.Contains(resp.Payload, "commitment=0xcd")
	})

	s.Run("missing user context is an internal error", func() {
		rec := s.do("/proof/generate", nil, true)
		s.Equal(http.StatusInternalServerError, rec.Code)
	})

	s.Run("maps service errors", func() {
		cases := []struct {
			code   dErrors.Code
			status int
		}{
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodePolicyViolation, http.StatusPreconditionFailed},
			{dErrors.CodeForbidden, http.StatusForbidden},
		}
		for _, tc := range cases {
			s.mockService.EXPECT().Generate(gomock.Any(), s.userID).Return(nil, dErrors.New(tc.code, "nope"))
			rec := s.do("/proof/generate", nil, false)
			s.Equal(tc.status, rec.Code, tc.code)
		}
	})
}

func (s *HandlerSuite) TestVerify() {
	const payload = "zp://verify?wallet=0xab&cred=zpc_1&commitment=0xcd"

	s.Run("valid proof", func() {
		s.mockService.EXPECT().Verify(gomock.Any(), payload).Return(&models.VerifyResult{
			Valid:        true,
			CredentialID: "zpc_1",
			Wallet:       "0xab",
			Status:       credmodels.DerivedVerified,
			CheckedAt:    s.now,
		}, nil)

		rec := s.do("/proof/verify", map[string]string{"payload": "  " + payload + " "}, true)
		s.Equal(http.StatusOK, rec.Code)

		var resp VerifyProofResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
		s.True(resp.Valid)
		s.Empty(resp.Reason)
		s.Equal("VERIFIED", resp.Status)
	})

	s.Run("rejections are 200 with a reason", func() {
		for _, reason := range []models.FailureReason{
			models.ReasonNoCredential, models.ReasonExpired, models.ReasonNoProof,
			models.ReasonMismatch, models.ReasonProofsDisabled,
		} {
			s.mockService.EXPECT().Verify(gomock.Any(), payload).Return(models.Rejected(reason, s.now), nil)
			rec := s.do("/proof/verify", map[string]string{"payload": payload}, true)
			s.Equal(http.StatusOK, rec.Code, reason)

			var resp VerifyProofResponse
			s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
			s.False(resp.Valid)
			s.Equal(string(reason), resp.Reason)
		}
	})

	s.Run("rate limited is 429", func() {
		s.mockService.EXPECT().Verify(gomock.Any(), payload).Return(models.Rejected(models.ReasonRateLimited, s.now), nil)
		rec := s.do("/proof/verify", map[string]string{"payload": payload}, true)
		s.Equal(http.StatusTooManyRequests, rec.Code)
	})

	s.Run("missing payload", func() {
		rec := s.do("/proof/verify", map[string]string{}, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed payload", func() {
		s.mockService.EXPECT().Verify(gomock.Any(), "nope").Return(nil, dErrors.New(dErrors.CodeValidation, "payload must start with zp://verify?"))
		rec := s.do("/proof/verify", map[string]string{"payload": "nope"}, true)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
