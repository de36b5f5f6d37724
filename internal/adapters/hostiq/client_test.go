package hostiq_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hostiq/internal/adapters/hostiq"
	"hostiq/internal/domain"
	"hostiq/internal/storage/memory"
)

func newClient(t *testing.T, url string, store domain.TokenStore, opts hostiq.Options) *hostiq.Client {
	t.Helper()
	cl, err := hostiq.New(url+"/api", store, opts)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return cl
}

func seed(t *testing.T, store domain.TokenStore, access, refresh string) {
	t.Helper()
	ctx := context.Background()
	if access != "" {
		if err := store.Set(ctx, domain.AccessTokenKey, access); err != nil {
			t.Fatal(err)
		}
	}
	if refresh != "" {
		if err := store.Set(ctx, domain.RefreshTokenKey, refresh); err != nil {
			t.Fatal(err)
		}
	}
}

func stored(t *testing.T, store domain.TokenStore, key string) (string, bool) {
	t.Helper()
	v, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	return v, ok
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotReqID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		if r.URL.Path != "/api/owner/stats" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"properties": 3})
	}))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "tok-1", "")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	got, err := cl.OwnerStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("authorization header: %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatalf("expected X-Request-ID")
	}
	if got["properties"].(float64) != 3 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, memory.New(), hostiq.Options{})
	if err := cl.Get(context.Background(), "/room-templates", nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
}

// backend answers 403 to stale tokens and rotates on /auth/refresh.
type backend struct {
	mu           sync.Mutex
	valid        string // currently accepted access token
	refreshHits  int32
	apiHits      int32
	refreshCode  int    // non-zero forces a refresh failure status
	rotateTo     string // refresh token handed out on refresh
	alwaysForbid bool
}

func (b *backend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			atomic.AddInt32(&b.refreshHits, 1)
			if r.Header.Get("Authorization") != "" {
				t.Errorf("refresh must not carry a bearer token")
			}
			var body struct {
				RefreshToken string `json:"refreshToken"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.RefreshToken == "" {
				t.Errorf("refresh body missing refreshToken")
			}
			if b.refreshCode != 0 {
				http.Error(w, "refresh rejected", b.refreshCode)
				return
			}
			b.mu.Lock()
			b.valid = "fresh-" + body.RefreshToken
			resp := map[string]string{"accessToken": b.valid}
			if b.rotateTo != "" {
				resp["refreshToken"] = b.rotateTo
			}
			b.mu.Unlock()
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		atomic.AddInt32(&b.apiHits, 1)
		b.mu.Lock()
		ok := !b.alwaysForbid && r.Header.Get("Authorization") == "Bearer "+b.valid
		b.mu.Unlock()
		if !ok {
			http.Error(w, "token expired", http.StatusForbidden)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "insp-1", "echo": string(body)})
	})
}

func TestClient_403RefreshesAndReplaysOnce(t *testing.T) {
	b := &backend{valid: "never-matches"}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	var out map[string]any
	if err := cl.Post(context.Background(), "/inspections/insp-1/reject", map[string]string{"reason": "dirty"}, &out); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out["id"] != "insp-1" {
		t.Fatalf("unexpected payload: %+v", out)
	}
	if !strings.Contains(out["echo"].(string), `"reason":"dirty"`) {
		t.Fatalf("replayed body lost: %q", out["echo"])
	}
	if got := atomic.LoadInt32(&b.refreshHits); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
	if got := atomic.LoadInt32(&b.apiHits); got != 2 {
		t.Fatalf("expected original + 1 replay, got %d", got)
	}
	if v, _ := stored(t, store, domain.AccessTokenKey); v != "fresh-r1" {
		t.Fatalf("new access token not persisted: %q", v)
	}
	if v, _ := stored(t, store, domain.RefreshTokenKey); v != "r1" {
		t.Fatalf("refresh token should be untouched: %q", v)
	}
}

func TestClient_ReplayedRequestNeverRefreshesTwice(t *testing.T) {
	b := &backend{alwaysForbid: true}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.GetInspection(context.Background(), "insp-1")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected 403 from replay, got %v", err)
	}
	if got := atomic.LoadInt32(&b.refreshHits); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
	if got := atomic.LoadInt32(&b.apiHits); got != 2 {
		t.Fatalf("expected 2 api hits, got %d", got)
	}
}

func TestClient_RefreshFailureClearsTokens(t *testing.T) {
	b := &backend{valid: "never-matches", refreshCode: http.StatusUnauthorized}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.ListAssignments(context.Background())
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	// the caller sees the refresh failure, not the original 403
	if apiErr.Status != http.StatusUnauthorized || apiErr.Path != "/auth/refresh" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if _, ok := stored(t, store, domain.AccessTokenKey); ok {
		t.Fatalf("access token should be deleted")
	}
	if _, ok := stored(t, store, domain.RefreshTokenKey); ok {
		t.Fatalf("refresh token should be deleted")
	}
}

func TestClient_RefreshNetworkErrorClearsTokens(t *testing.T) {
	// refresh endpoint hangs up mid-request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("no hijacker")
			}
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.OwnerStats(context.Background())
	if err == nil || errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected transport error from refresh, got %v", err)
	}
	if _, ok := stored(t, store, domain.AccessTokenKey); ok {
		t.Fatalf("access token should be deleted")
	}
	if _, ok := stored(t, store, domain.RefreshTokenKey); ok {
		t.Fatalf("refresh token should be deleted")
	}
}

func TestClient_EmptyAccessTokenIsRefreshFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.OwnerStats(context.Background())
	if !errors.Is(err, domain.ErrEmptyAccessToken) {
		t.Fatalf("expected ErrEmptyAccessToken, got %v", err)
	}
	if _, ok := stored(t, store, domain.RefreshTokenKey); ok {
		t.Fatalf("refresh token should be deleted")
	}
}

func TestClient_NoRefreshTokenPropagates403(t *testing.T) {
	b := &backend{valid: "never-matches"}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.OwnerStats(context.Background())
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected original 403, got %v", err)
	}
	if apiErr.Path != "/owner/stats" {
		t.Fatalf("expected original request path, got %s", apiErr.Path)
	}
	if got := atomic.LoadInt32(&b.refreshHits); got != 0 {
		t.Fatalf("no refresh expected, got %d", got)
	}
	// nothing to clear: access token stays
	if v, _ := stored(t, store, domain.AccessTokenKey); v != "stale" {
		t.Fatalf("access token should be kept, got %q", v)
	}
}

func TestClient_401DoesNotRefresh(t *testing.T) {
	var refreshHits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			atomic.AddInt32(&refreshHits, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	_, err := cl.OwnerStats(context.Background())
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected 401, got %v", err)
	}
	if atomic.LoadInt32(&refreshHits) != 0 {
		t.Fatalf("401 must not trigger refresh")
	}
}

func TestClient_RefreshRotatesRefreshToken(t *testing.T) {
	b := &backend{valid: "never-matches", rotateTo: "r2"}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{})

	if _, err := cl.GetInspection(context.Background(), "insp-1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v, _ := stored(t, store, domain.RefreshTokenKey); v != "r2" {
		t.Fatalf("rotated refresh token not persisted: %q", v)
	}
}

func TestClient_ConcurrentRefreshes(t *testing.T) {
	const n = 8
	for _, tc := range []struct {
		name  string
		dedup bool
		check func(t *testing.T, hits int32)
	}{
		{"independent", false, func(t *testing.T, hits int32) {
			if hits != n {
				t.Fatalf("expected %d independent refreshes, got %d", n, hits)
			}
		}},
		{"deduplicated", true, func(t *testing.T, hits int32) {
			if hits < 1 || hits >= n {
				t.Fatalf("expected refreshes collapsed, got %d", hits)
			}
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var refreshHits int32
			// every API request waits on the gate so all n fail together
			gate := make(chan struct{})
			var arrived sync.WaitGroup
			arrived.Add(n)
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
					atomic.AddInt32(&refreshHits, 1)
					time.Sleep(50 * time.Millisecond)
					_, _ = w.Write([]byte(`{"accessToken":"fresh"}`))
					return
				}
				if r.Header.Get("Authorization") == "Bearer fresh" {
					_, _ = w.Write([]byte(`{"id":"ok"}`))
					return
				}
				arrived.Done()
				<-gate
				w.WriteHeader(http.StatusForbidden)
			}))
			defer ts.Close()

			store := memory.New()
			seed(t, store, "stale", "r1")
			cl := newClient(t, ts.URL, store, hostiq.Options{DedupeRefresh: tc.dedup})

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := cl.OwnerStats(context.Background())
					errs <- err
				}()
			}
			arrived.Wait()
			close(gate)
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
			}
			tc.check(t, atomic.LoadInt32(&refreshHits))
		})
	}
}

type failingStore struct{ domain.TokenStore }

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("keychain locked")
}

func TestClient_TokenReadErrorFailsRequest(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, failingStore{memory.New()}, hostiq.Options{})
	if _, err := cl.OwnerStats(context.Background()); err == nil || !strings.Contains(err.Error(), "keychain locked") {
		t.Fatalf("expected store error, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("request must not be sent")
	}
}

func TestClient_OtherErrorsSurfaceUnchanged(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such inspection", http.StatusNotFound)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, memory.New(), hostiq.Options{})
	_, err := cl.GetInspection(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "no such inspection") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	cl := newClient(t, ts.URL, memory.New(), hostiq.Options{Timeout: 20 * time.Millisecond})
	if _, err := cl.OwnerStats(context.Background()); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := hostiq.New("", memory.New(), hostiq.Options{}); err == nil {
		t.Fatalf("expected error for empty base")
	}
	if _, err := hostiq.New("/api", memory.New(), hostiq.Options{}); err == nil {
		t.Fatalf("expected error for relative base")
	}
	if _, err := hostiq.New("http://x/api", nil, hostiq.Options{}); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestClient_CallerGivingUpDuringRefreshKeepsTokens(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			select {
			case <-time.After(200 * time.Millisecond):
			case <-r.Context().Done():
				return
			}
			_, _ = w.Write([]byte(`{"accessToken":"fresh"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	for _, tc := range []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		want error
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(50*time.Millisecond, cancel)
			return ctx, cancel
		}, context.Canceled},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 50*time.Millisecond)
		}, context.DeadlineExceeded},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.New()
			seed(t, store, "stale", "r1")
			cl := newClient(t, ts.URL, store, hostiq.Options{})

			ctx, cancel := tc.ctx()
			defer cancel()
			_, err := cl.OwnerStats(ctx)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if v, _ := stored(t, store, domain.RefreshTokenKey); v != "r1" {
				t.Fatalf("refresh token must survive, got %q", v)
			}
			if v, _ := stored(t, store, domain.AccessTokenKey); v != "stale" {
				t.Fatalf("access token must survive, got %q", v)
			}
		})
	}
}

func TestClient_DedupedRefreshOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/auth/refresh") {
			once.Do(func() { close(started) })
			<-release
			_, _ = w.Write([]byte(`{"accessToken":"fresh"}`))
			return
		}
		if r.Header.Get("Authorization") == "Bearer fresh" {
			_, _ = w.Write([]byte(`{"id":"ok"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()

	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{DedupeRefresh: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := make(chan error, 1)
	go func() {
		_, err := cl.OwnerStats(ctx)
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		_, err := cl.OwnerStats(context.Background())
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
	}
	close(release)

	if err := <-second; err != nil {
		t.Fatalf("live caller must still succeed, got %v", err)
	}
	if v, _ := stored(t, store, domain.AccessTokenKey); v != "fresh" {
		t.Fatalf("access token: %q", v)
	}
	if v, _ := stored(t, store, domain.RefreshTokenKey); v != "r1" {
		t.Fatalf("refresh token: %q", v)
	}
}

func TestClient_ForbiddenConnectionReleasedBeforeReplay(t *testing.T) {
	b := &backend{valid: "never-matches"}
	ts := httptest.NewServer(b.handler(t))
	defer ts.Close()

	// one connection: refresh and replay can only proceed once the 403 is released
	hc := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{MaxConnsPerHost: 1},
	}
	store := memory.New()
	seed(t, store, "stale", "r1")
	cl := newClient(t, ts.URL, store, hostiq.Options{HTTPClient: hc})

	if _, err := cl.OwnerStats(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := atomic.LoadInt32(&b.refreshHits); got != 1 {
		t.Fatalf("expected 1 refresh, got %d", got)
	}
}
