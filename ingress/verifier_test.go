package ingress_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boundary_errors "github.com/dev-mohitbeniwal/boundary/errors"
	"github.com/dev-mohitbeniwal/boundary/ingress"
	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(".")
	code := m.Run()
	os.Remove("boundary.log")
	os.Remove("boundary_error.log")
	os.Exit(code)
}

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func staticSecret(ctx context.Context) (string, error) {
	return testSecret, nil
}

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_ValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	body := []byte("token=x&command=%2Fboundary&text=123456789012")
	ts := strconv.FormatInt(now.Unix(), 10)

	err := v.Verify(context.Background(), ts, sign(testSecret, ts, body), body)
	assert.NoError(t, err)
}

func TestVerify_StaleTimestampRejected(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	body := []byte("payload")
	stale := strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10)

	err := v.Verify(context.Background(), stale, sign(testSecret, stale, body), body)
	assert.ErrorIs(t, err, boundary_errors.ErrSignature)
}

func TestVerify_FutureTimestampRejected(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	body := []byte("payload")
	future := strconv.FormatInt(now.Add(6*time.Minute).Unix(), 10)

	err := v.Verify(context.Background(), future, sign(testSecret, future, body), body)
	assert.ErrorIs(t, err, boundary_errors.ErrSignature)
}

func TestVerify_TamperedBodyRejected(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	ts := strconv.FormatInt(now.Unix(), 10)
	signature := sign(testSecret, ts, []byte("original"))

	err := v.Verify(context.Background(), ts, signature, []byte("tampered"))
	assert.ErrorIs(t, err, boundary_errors.ErrSignature)
}

func TestVerify_UnparseableTimestampRejected(t *testing.T) {
	v := ingress.NewVerifier(staticSecret)
	err := v.Verify(context.Background(), "not-a-number", "v0=abc", []byte("x"))
	assert.ErrorIs(t, err, boundary_errors.ErrSignature)
}

func TestMiddleware_RejectsBeforeHandlerRuns(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	handlerRan := false
	r := gin.New()
	r.POST("/slack/commands", v.Middleware(), func(c *gin.Context) {
		handlerRan = true
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader("payload"))
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, handlerRan)
}

func TestMiddleware_PassesVerifiedRequestWithBodyIntact(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := ingress.NewVerifierAt(staticSecret, func() time.Time { return now })

	body := "command=%2Fboundary&text=123456789012"
	ts := strconv.FormatInt(now.Unix(), 10)

	var seenCommand string
	r := gin.New()
	r.POST("/slack/commands", v.Middleware(), func(c *gin.Context) {
		seenCommand = c.PostForm("command")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sign(testSecret, ts, []byte(body)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/boundary", seenCommand)
}
