package oui

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kisun-bit/netgrid/sys/info/network"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 本地管理地址(第一个字节第二位为 1)不在任何注册表中.
const unregisteredMAC = "02:AB:CD:11:22:33"

type mockSource struct {
	mu     sync.Mutex
	name   string
	vendor string
	err    error
	delay  time.Duration
	calls  int
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) Lookup(ctx context.Context, _ string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.vendor, m.err
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestResolver(t *testing.T, opts ...Option) (*Resolver, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	opts = append([]Option{WithCacheDir(t.TempDir()), WithRegisterer(reg)}, opts...)
	r, err := NewResolver(opts...)
	require.NoError(t, err)
	return r, reg
}

func TestResolver_ResolveBulk_StaticAndInvalid(t *testing.T) {
	remote := &mockSource{name: "remote"}
	r, _ := newTestResolver(t, WithSources(remote))

	got := r.ResolveBulk(context.Background(), []string{"52:54:00:12:34:56", "not-a-mac"})

	require.Len(t, got, 2)
	assert.Equal(t, "QEMU Virtual NIC", got["52:54:00:12:34:56"])
	v, ok := got["not-a-mac"]
	assert.True(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, 0, remote.Calls())
}

func TestResolver_Resolve_RemoteCalledOnce(t *testing.T) {
	remote := &mockSource{name: "remote", vendor: "Example Networks"}
	r, _ := newTestResolver(t, WithSources(remote), WithRegistry(false))

	for i := 0; i < 2; i++ {
		v, err := r.Resolve(context.Background(), unregisteredMAC)
		require.NoError(t, err)
		assert.Equal(t, "Example Networks", v)
	}
	assert.Equal(t, 1, remote.Calls())
	assert.Equal(t, CacheStats{VendorEntries: 1, OUIEntries: 1}, r.CacheStats())

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.lookups.WithLabelValues(resultRemote)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.lookups.WithLabelValues(resultCacheHit)))
}

func TestResolver_Resolve_CachesMiss(t *testing.T) {
	remote := &mockSource{name: "remote"}
	r, _ := newTestResolver(t, WithSources(remote), WithRegistry(false))

	for i := 0; i < 3; i++ {
		v, err := r.Resolve(context.Background(), unregisteredMAC)
		require.NoError(t, err)
		assert.Equal(t, "", v)
	}
	assert.Equal(t, 1, remote.Calls())
	assert.Equal(t, CacheStats{VendorEntries: 1, OUIEntries: 0}, r.CacheStats())
}

func TestResolver_Resolve_CanceledMissNotCached(t *testing.T) {
	remote := &mockSource{name: "remote", vendor: "Example Networks", delay: 50 * time.Millisecond}
	r, _ := newTestResolver(t, WithSources(remote), WithRegistry(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := r.Resolve(ctx, unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, "", v)
	assert.Equal(t, CacheStats{}, r.CacheStats())
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.lookups.WithLabelValues(resultCanceled)))

	v, err = r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, "Example Networks", v)
	assert.Equal(t, 2, remote.Calls())
	assert.Equal(t, CacheStats{VendorEntries: 1, OUIEntries: 1}, r.CacheStats())
}

func TestResolver_Resolve_SkipsFailingSources(t *testing.T) {
	failing := &mockSource{name: "failing", err: errors.Wrap(network.ErrSourceUnavailable, "boom")}
	slow := &mockSource{name: "slow", vendor: "Too Late", delay: time.Second}
	good := &mockSource{name: "good", vendor: "Example Networks"}
	r, _ := newTestResolver(t,
		WithSources(failing, slow, good),
		WithRegistry(false),
		WithSourceTimeout(20*time.Millisecond),
	)

	v, err := r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, "Example Networks", v)
	assert.Equal(t, 1, failing.Calls())
	assert.Equal(t, 1, slow.Calls())
	assert.Equal(t, 1, good.Calls())
}

func TestResolver_Resolve_Invalid(t *testing.T) {
	r, _ := newTestResolver(t, WithOffline(true))

	_, err := r.Resolve(context.Background(), "C4:34:6B")
	require.Error(t, err)
	assert.True(t, errors.Is(err, network.ErrValidation))
	assert.Equal(t, CacheStats{}, r.CacheStats())
}

func TestResolver_Resolve_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	remote := &mockSource{name: "remote", vendor: "Example Networks"}

	first, err := NewResolver(WithCacheDir(dir), WithSources(remote), WithRegistry(false))
	require.NoError(t, err)
	_, err = first.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)

	second, err := NewResolver(WithCacheDir(dir), WithSources(remote), WithRegistry(false))
	require.NoError(t, err)
	v, err := second.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)

	assert.Equal(t, "Example Networks", v)
	assert.Equal(t, 1, remote.Calls())
}

func TestResolver_Resolve_RawCacheBeforeRemote(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OUICacheFile), []byte(`{"02ABCD": "Cached Vendor"}`), 0o644))
	remote := &mockSource{name: "remote", vendor: "Example Networks"}
	r, _ := newTestResolver(t, WithCacheDir(dir), WithSources(remote), WithRegistry(false))

	v, err := r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, "Cached Vendor", v)
	assert.Equal(t, 0, remote.Calls())
}

func TestResolver_CorruptCacheIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VendorCacheFile), []byte(`{broken`), 0o644))

	r, _ := newTestResolver(t, WithCacheDir(dir), WithOffline(true))
	v, err := r.Resolve(context.Background(), "00:0c:29:aa:bb:cc")
	require.NoError(t, err)
	assert.Equal(t, "VMware Inc", v)
}

func TestResolver_StaticTableOverride(t *testing.T) {
	r, _ := newTestResolver(t, WithOffline(true), WithRegistry(false),
		WithStaticTable(map[string]string{"02-ab-cd": "Lab Switch"}))

	v, err := r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, "Lab Switch", v)

	v, err = r.Resolve(context.Background(), "52:54:00:12:34:56")
	require.NoError(t, err)
	assert.Equal(t, "", v, "default table is replaced")
}

func TestResolver_ClearCache(t *testing.T) {
	remote := &mockSource{name: "remote", vendor: "Example Networks"}
	r, _ := newTestResolver(t, WithSources(remote), WithRegistry(false))

	_, err := r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(r.CacheDir(), VendorCacheFile))
	assert.FileExists(t, filepath.Join(r.CacheDir(), OUICacheFile))

	require.NoError(t, r.ClearCache())
	assert.Equal(t, CacheStats{}, r.CacheStats())
	assert.NoFileExists(t, filepath.Join(r.CacheDir(), VendorCacheFile))
	assert.NoFileExists(t, filepath.Join(r.CacheDir(), OUICacheFile))

	_, err = r.Resolve(context.Background(), unregisteredMAC)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.Calls())
}

func TestResolver_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewResolver(WithCacheDir(t.TempDir()), WithRegisterer(reg), WithOffline(true))
	require.NoError(t, err)
	_, err = NewResolver(WithCacheDir(t.TempDir()), WithRegisterer(reg), WithOffline(true))
	assert.NoError(t, err)
}

func TestRegistrySource(t *testing.T) {
	v, err := RegistrySource{}.Lookup(context.Background(), "000C29")
	require.NoError(t, err)
	assert.NotEmpty(t, v)

	v, err = RegistrySource{}.Lookup(context.Background(), "02ABCD")
	require.NoError(t, err)
	assert.Empty(t, v)
}
