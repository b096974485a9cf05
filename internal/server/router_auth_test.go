package server

import (
	contextpkg "context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
	"github.com/inkpress/inkpress/backend/internal/auth"
)

func TestRequireAuthReportsExpiredTokenDistinctly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/user", http.NoBody)
	request.Header.Set("Authorization", "Bearer expired-token")
	ctx.Request = request

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tokens: stubTokenManager{validateErr: apperrors.ErrExpiredToken},
		logger: zap.New(core),
	}

	handler.requireAuth(ctx)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusBadRequest)
	}
	envelope := decodeBody[errorPayload](t, recorder)
	if envelope.ErrorCode != 7 {
		t.Fatalf("expected expired-token error code, got %d", envelope.ErrorCode)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for a rejected token, got %s", entries[0].Level)
	}
	if entries[0].Message != "access token rejected" {
		t.Fatalf("unexpected log message: %q", entries[0].Message)
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/user", http.NoBody)

	handler := &httpHandler{
		tokens: stubTokenManager{},
		logger: zap.NewNop(),
	}

	handler.requireAuth(ctx)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status code: got %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
	envelope := decodeBody[errorPayload](t, recorder)
	if envelope.ErrorCode != 3 {
		t.Fatalf("expected authorization-required error code, got %d", envelope.ErrorCode)
	}
}

func TestOptionalAuthLetsAnonymousRequestsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/article/some-id", http.NoBody)

	handler := &httpHandler{
		tokens: stubTokenManager{validateErr: errors.New("must not be called")},
		logger: zap.NewNop(),
	}

	handler.optionalAuth(ctx)

	if ctx.IsAborted() {
		t.Fatalf("expected anonymous request to pass through")
	}
	if got := ctx.GetString(userIDContextKey); got != "" {
		t.Fatalf("expected no caller identity, got %q", got)
	}
}

func TestOptionalAuthStillRejectsBadTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	request := httptest.NewRequest(http.MethodGet, "/article/some-id", http.NoBody)
	request.Header.Set("Authorization", "Bearer forged-token")
	ctx.Request = request

	handler := &httpHandler{
		tokens: stubTokenManager{validateErr: apperrors.ErrInvalidToken},
		logger: zap.NewNop(),
	}

	handler.optionalAuth(ctx)

	if !ctx.IsAborted() {
		t.Fatalf("expected bad token to abort the request")
	}
	envelope := decodeBody[errorPayload](t, recorder)
	if envelope.ErrorCode != 6 {
		t.Fatalf("expected invalid-token error code, got %d", envelope.ErrorCode)
	}
}

type stubTokenManager struct {
	validateErr error
	userID      string
}

func (s stubTokenManager) IssuePair(contextpkg.Context, string) (auth.TokenPair, error) {
	return auth.TokenPair{}, errors.New("not implemented")
}

func (s stubTokenManager) ValidateAccess(string) (string, error) {
	return s.userID, s.validateErr
}

func (s stubTokenManager) ValidateRefresh(contextpkg.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func (s stubTokenManager) InvalidateRefresh(contextpkg.Context, string) error {
	return errors.New("not implemented")
}
