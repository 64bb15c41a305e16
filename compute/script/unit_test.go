package script

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edge-dispatch/edge/domain"
	"edge-dispatch/edge/infra"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resources(t *testing.T) (*infra.MemoryKV, *infra.HTTPCache) {
	t.Helper()
	tier, err := infra.NewMemoryTier(16)
	require.NoError(t, err)
	return infra.NewMemoryKV(), infra.NewHTTPCache(tier)
}

func compile(t *testing.T, src string) *Unit {
	t.Helper()
	u, err := Compile("test.js", src)
	require.NoError(t, err)
	return u
}

func TestCompile_RequiresHandle(t *testing.T) {
	_, err := Compile("empty.js", "var x = 1;")
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = Compile("broken.js", "function handle( {")
	assert.Error(t, err)
}

func TestUnit_ReturnsResponse(t *testing.T) {
	u := compile(t, `
function handle(request, kv, cache) {
  return {
    status: 201,
    headers: {"content-type": "text/plain", "x-method": request.method},
    body: "hi " + request.headers["x-name"] + " " + request.body,
  };
}`)
	kv, cache := resources(t)

	req := httptest.NewRequest(http.MethodPost, "http://edge.example/ok", strings.NewReader("payload"))
	req.Header.Set("X-Name", "ana")

	resp, err := u.Handle(context.Background(), req, kv, cache)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, "POST", resp.Header.Get("X-Method"))
	assert.Equal(t, "hi ana payload", string(resp.Body))
}

func TestUnit_DefaultStatusIs200(t *testing.T) {
	u := compile(t, `function handle() { return {body: "x"}; }`)
	kv, cache := resources(t)

	resp, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestUnit_KVBindings(t *testing.T) {
	u := compile(t, `
function handle(request, kv) {
  var n = Number(kv.get("counter") || "0") + 1;
  kv.put("counter", String(n));
  kv.put("tmp", "x", 60);
  kv.delete("tmp");
  return {status: 200, body: String(n)};
}`)
	kv, cache := resources(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		resp, err := u.Handle(ctx, httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte('0' + i)}, resp.Body)
	}
	_, found, _ := kv.Get(ctx, "tmp")
	assert.False(t, found)
}

func TestUnit_CacheBindings(t *testing.T) {
	u := compile(t, `
function handle(request, kv, cache) {
  var hit = cache.match("https://origin.example/x");
  if (hit) { return {status: 200, body: "hit:" + hit.body}; }
  cache.put("https://origin.example/x", {status: 200, headers: {"cache-control": "max-age=60"}, body: "v"});
  return {status: 200, body: "miss"};
}`)
	kv, cache := resources(t)

	var bodies []string
	for i := 0; i < 2; i++ {
		resp, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
		require.NoError(t, err)
		bodies = append(bodies, string(resp.Body))
	}
	assert.Equal(t, []string{"miss", "hit:v"}, bodies)
}

func TestUnit_ThrowIsError(t *testing.T) {
	u := compile(t, `function handle() { throw new Error("boom"); }`)
	kv, cache := resources(t)

	_, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
	var ex *goja.Exception
	assert.True(t, errors.As(err, &ex), "expected goja exception, got %v", err)
}

func TestUnit_AsyncRejectionAfterKVReadIsError(t *testing.T) {
	u := compile(t, `
async function handle(request, kv) {
  var v = await kv.get("k");
  throw new Error("rejected after " + v);
}`)
	kv, cache := resources(t)
	require.NoError(t, kv.Put(context.Background(), "k", []byte("read"), 0))

	_, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected after read")
}

func TestUnit_AsyncResolves(t *testing.T) {
	u := compile(t, `async function handle() { return {status: 202}; }`)
	kv, cache := resources(t)

	resp, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.Status)
}

func TestUnit_NoResponseIsError(t *testing.T) {
	kv, cache := resources(t)
	for _, src := range []string{
		`function handle() {}`,
		`function handle() { return "text"; }`,
	} {
		u := compile(t, src)
		_, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
		assert.Error(t, err, src)
	}
}

func TestUnit_InterruptedWhenContextEnds(t *testing.T) {
	u := compile(t, `function handle() { for (;;) {} }`)
	kv, cache := resources(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := u.Handle(ctx, httptest.NewRequest(http.MethodGet, "http://edge/", nil), kv, cache)
	var interrupted *goja.InterruptedError
	assert.True(t, errors.As(err, &interrupted), "expected interrupt, got %v", err)
}

type failingKV struct{ domain.KVStore }

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("kv unavailable")
}

func TestUnit_KVErrorSurfacesAsException(t *testing.T) {
	u := compile(t, `function handle(r, kv) { kv.get("x"); return {status: 200}; }`)
	_, cache := resources(t)

	_, err := u.Handle(context.Background(), httptest.NewRequest(http.MethodGet, "http://edge/", nil), failingKV{}, cache)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kv unavailable")
}

func TestUnit_BodyLimit(t *testing.T) {
	u, err := Compile("t.js", `function handle(r) { return {body: r.body}; }`, WithMaxBodyBytes(4))
	require.NoError(t, err)
	kv, cache := resources(t)

	_, err = u.Handle(context.Background(), httptest.NewRequest(http.MethodPost, "http://edge/", strings.NewReader("12345")), kv, cache)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}
