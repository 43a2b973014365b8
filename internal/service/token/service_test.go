package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/speech-token-server/internal/model/speech"
)

type fakeCredentials map[speech.Slot]speech.CredentialSet

func (f fakeCredentials) For(slot speech.Slot) (speech.CredentialSet, bool) {
	set, ok := f[slot]
	return set, ok
}

// fakeUpstream records the requests it receives and answers with a fixed reply.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []*http.Request
	forms    []map[string]string
	status   int
	body     string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.forms = append(f.forms, form)
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeUpstream) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ServiceId-test",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := tok.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("SignedString err: %v", err)
	}
	return signed
}

type testEnv struct {
	iam     *fakeUpstream
	authz   *fakeUpstream
	iamURL  string
	authURL string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		iam:   &fakeUpstream{},
		authz: &fakeUpstream{body: "basic-token"},
	}
	iamSrv := httptest.NewServer(env.iam)
	authSrv := httptest.NewServer(env.authz)
	t.Cleanup(iamSrv.Close)
	t.Cleanup(authSrv.Close)
	env.iamURL = iamSrv.URL + "/identity/token"
	env.authURL = authSrv.URL + "/authorization/api/v1/token"
	return env
}

func (e *testEnv) service(creds fakeCredentials) *Service {
	return NewService(creds, Options{
		IAM:           NewIAMClient(e.iamURL, nil),
		Authorization: NewAuthorizationClient(e.authURL, nil),
		Debug:         true,
	})
}

func TestGetTokenAPIKeyMode(t *testing.T) {
	env := newTestEnv(t)
	accessToken := signedJWT(t, time.Now().Add(time.Hour))
	env.iam.body = `{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":3600}`

	svc := env.service(fakeCredentials{
		speech.TextToSpeech: {Username: "ignored", Password: "ignored", APIKey: "xyz"},
	})

	got, err := svc.GetToken(context.Background(), speech.TextToSpeech)
	if err != nil {
		t.Fatalf("GetToken err: %v", err)
	}
	if got != accessToken {
		t.Fatalf("expected raw access token, got %q", got)
	}

	if env.authz.calls() != 0 {
		t.Fatal("authorization service must not be called in api key mode")
	}
	if env.iam.calls() != 1 {
		t.Fatalf("expected one iam call, got %d", env.iam.calls())
	}

	req := env.iam.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("unexpected method %s", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if req.Header.Get(transactionHeader) == "" {
		t.Fatal("expected transaction id header")
	}
	form := env.iam.forms[0]
	if form["grant_type"] != apiKeyGrantType || form["apikey"] != "xyz" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestGetTokenBasicMode(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(fakeCredentials{
		speech.SpeechToText: {Username: "alice", Password: "secret", ServiceURL: "https://stt.example.test/api"},
	})

	got, err := svc.GetToken(context.Background(), speech.SpeechToText)
	if err != nil {
		t.Fatalf("GetToken err: %v", err)
	}
	if got != "basic-token" {
		t.Fatalf("unexpected token %q", got)
	}
	if env.iam.calls() != 0 {
		t.Fatal("iam must not be called in basic mode")
	}

	req := env.authz.requests[0]
	user, pass, ok := req.BasicAuth()
	if !ok || user != "alice" || pass != "secret" {
		t.Fatalf("unexpected basic auth %q %q %v", user, pass, ok)
	}
	if got := req.URL.Query().Get("url"); got != "https://stt.example.test/api" {
		t.Fatalf("unexpected url query %q", got)
	}
}

func TestGetTokenBasicModeDefaultURL(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(fakeCredentials{
		speech.TextToSpeech: {Username: "bob", Password: "pw"},
	})

	if _, err := svc.GetToken(context.Background(), speech.TextToSpeech); err != nil {
		t.Fatalf("GetToken err: %v", err)
	}
	if got := env.authz.requests[0].URL.Query().Get("url"); got != speech.TextToSpeech.DefaultURL() {
		t.Fatalf("expected default url, got %q", got)
	}
}

func TestGetTokenReturnsBodyVerbatim(t *testing.T) {
	env := newTestEnv(t)
	env.authz.body = "token-with-trailing-newline\n"
	svc := env.service(fakeCredentials{speech.SpeechToText: {Username: "alice"}})

	got, err := svc.GetToken(context.Background(), speech.SpeechToText)
	if err != nil {
		t.Fatalf("GetToken err: %v", err)
	}
	if got != "token-with-trailing-newline\n" {
		t.Fatalf("token was modified: %q", got)
	}
}

func TestGetTokenMissingCredentials(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(fakeCredentials{
		speech.SpeechToText: {ServiceURL: "https://stt.example.test/api"},
	})

	_, err := svc.GetToken(context.Background(), speech.SpeechToText)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
	if env.iam.calls()+env.authz.calls() != 0 {
		t.Fatal("no upstream call expected without credentials")
	}
}

func TestGetTokenUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(fakeCredentials{})

	if _, err := svc.GetToken(context.Background(), speech.Slot("translate")); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("expected ErrUnknownSlot, got %v", err)
	}
}

func TestGetTokenUpstreamRejection(t *testing.T) {
	env := newTestEnv(t)
	env.iam.status = http.StatusBadRequest
	env.iam.body = `{"errorCode":"BXNIM0415E","errorMessage":"Provided API key could not be found"}`
	svc := env.service(fakeCredentials{speech.SpeechToText: {APIKey: "bad"}})

	_, err := svc.GetToken(context.Background(), speech.SpeechToText)
	if !IsAuthRejected(err) {
		t.Fatalf("expected auth rejection, got %v", err)
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected UpstreamError 400, got %v", err)
	}
	if env.iam.calls() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", env.iam.calls())
	}
}

func TestGetTokenUpstreamFailureIsNotRetried(t *testing.T) {
	env := newTestEnv(t)
	env.authz.status = http.StatusServiceUnavailable
	svc := env.service(fakeCredentials{speech.TextToSpeech: {Username: "bob", Password: "pw"}})

	_, err := svc.GetToken(context.Background(), speech.TextToSpeech)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsAuthRejected(err) {
		t.Fatalf("503 must not count as auth rejection: %v", err)
	}
	if env.authz.calls() != 1 {
		t.Fatalf("expected exactly one attempt, got %d", env.authz.calls())
	}
}

func TestGetTokenEmptyIAMToken(t *testing.T) {
	env := newTestEnv(t)
	env.iam.body = `{"token_type":"Bearer"}`
	svc := env.service(fakeCredentials{speech.SpeechToText: {APIKey: "k"}})

	if _, err := svc.GetToken(context.Background(), speech.SpeechToText); !errors.Is(err, ErrEmptyToken) {
		t.Fatalf("expected ErrEmptyToken, got %v", err)
	}
}

func TestGetTokenTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := NewService(fakeCredentials{speech.SpeechToText: {APIKey: "k"}}, Options{
		IAM: NewIAMClient(url, nil),
	})
	if _, err := svc.GetToken(context.Background(), speech.SpeechToText); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.service(fakeCredentials{
		speech.SpeechToText: {APIKey: "k", ServiceURL: "https://stt.example.test"},
		speech.TextToSpeech: {},
	})

	statuses := svc.Status()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Slot != speech.SpeechToText || statuses[0].AuthMode != "apikey" || !statuses[0].Ready {
		t.Fatalf("unexpected stt status %#v", statuses[0])
	}
	if statuses[1].AuthMode != speech.ModeNone || statuses[1].Ready {
		t.Fatalf("unexpected tts status %#v", statuses[1])
	}
	if statuses[1].ServiceURL != speech.TextToSpeech.DefaultURL() {
		t.Fatalf("unexpected tts url %q", statuses[1].ServiceURL)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	got, ok := tokenExpiry(signedJWT(t, exp))
	if !ok || !got.Equal(exp) {
		t.Fatalf("tokenExpiry = %s %v, want %s", got, ok, exp)
	}

	if _, ok := tokenExpiry("opaque-token"); ok {
		t.Fatal("expected opaque token to have no expiry")
	}
}
