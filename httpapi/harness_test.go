package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	svcwatch "github.com/svcwatch/svcwatch"
	"github.com/svcwatch/svcwatch/internal/storage/memory"
	"github.com/svcwatch/svcwatch/internal/transfer"
	"github.com/svcwatch/svcwatch/password"
	"github.com/svcwatch/svcwatch/token"
)

// fakeMailer records outbound tokens per recipient.
type fakeMailer struct {
	disabled    bool
	failNext    bool
	resetTokens map[string]string
	setupTokens map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{resetTokens: map[string]string{}, setupTokens: map[string]string{}}
}

func (m *fakeMailer) Enabled() bool { return !m.disabled }

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, tok string) error {
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("smtp unavailable")
	}
	m.resetTokens[to] = tok
	return nil
}

func (m *fakeMailer) SendPasswordSetup(_ context.Context, to, tok string) error {
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("smtp unavailable")
	}
	m.setupTokens[to] = tok
	return nil
}

func (m *fakeMailer) SendAccountCreated(_ context.Context, to, _ string, tok string) error {
	if m.failNext {
		m.failNext = false
		return fmt.Errorf("smtp unavailable")
	}
	m.setupTokens[to] = tok
	return nil
}

type stubS3 struct{}

func (stubS3) PresignPutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://s3.test/put/" + *in.Key}, nil
}

func (stubS3) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://s3.test/get/" + *in.Key}, nil
}

func (stubS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{}, nil
}

func (stubS3) DeleteObject(_ context.Context, _ *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	return &s3.DeleteObjectOutput{}, nil
}

type apiHarness struct {
	router http.Handler
	store  *memory.Store
	mailer *fakeMailer
	engine *svcwatch.Engine
	hasher *password.Bcrypt
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	store := memory.New()
	mailer := newFakeMailer()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := svcwatch.DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Session.TrackRefresh = true
	cfg.Security.EnableLoginThrottle = false
	// MinCost keeps the many login round-trips in this suite fast.
	cfg.Password.Cost = bcrypt.MinCost

	engine, err := svcwatch.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUsers(store.Users).
		WithServices(store.Services).
		WithMailer(mailer).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	hasher, err := password.NewBcrypt(password.Config{Cost: bcrypt.MinCost})
	require.NoError(t, err)

	tokens, err := token.NewManager(token.Config{
		Secret:      cfg.Token.Secret,
		Issuer:      "svcwatch",
		AccessTTL:   cfg.Token.AccessTTL,
		PendingTTL:  cfg.Token.PendingTTL,
		RefreshTTL:  cfg.Token.RefreshTTL,
		ResetTTL:    cfg.Token.ResetTTL,
		SetupTTL:    cfg.Token.SetupTTL,
		TransferTTL: cfg.Token.TransferTTL,
	})
	require.NoError(t, err)

	broker := transfer.NewBroker(transfer.Config{
		Bucket:      "transfer-bucket",
		LinkBaseURL: "https://transfer.example.com",
	}, store.TempUsers, tokens, hasher, stubS3{}, stubS3{})

	server := NewServer(Config{}, engine, store.Services, store.Configs, store.Logs, broker, nil)
	return &apiHarness{
		router: server.Router(),
		store:  store,
		mailer: mailer,
		engine: engine,
		hasher: hasher,
	}
}

func (h *apiHarness) seedUser(t *testing.T, id, email, plain string, mutate func(*svcwatch.UserRecord)) {
	t.Helper()
	digest, err := h.hasher.Hash(plain)
	require.NoError(t, err)
	user := &svcwatch.UserRecord{
		ID:             id,
		Username:       strings.SplitN(email, "@", 2)[0],
		Email:          email,
		HashedPassword: digest,
		IsActive:       true,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, h.store.Users.Create(context.Background(), user))
}

func (h *apiHarness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(t *testing.T, email, plain string) (string, *http.Cookie) {
	t.Helper()
	form := url.Values{"username": {email}, "password": {plain}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login/access-token",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := h.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	var refresh *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == refreshCookieName && cookie.Value != "" {
			refresh = cookie
		}
	}
	return body.AccessToken, refresh
}

func jsonRequest(t *testing.T, method, target, accessToken string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return req
}

// totpCode computes the RFC 6238 code for a base32 secret, mirroring what an
// authenticator app would show.
func totpCode(t *testing.T, secretBase32 string, now time.Time) string {
	t.Helper()
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secretBase32)
	require.NoError(t, err)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(now.Unix()/30))
	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", code%1_000_000)
}
