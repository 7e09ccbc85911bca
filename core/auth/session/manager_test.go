package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/passport/core/auth/directory"
	kerrors "github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/redis"
)

type versions struct {
	mu sync.Mutex
	m  map[string]int64
}

func (v *versions) TokenVersion(_ context.Context, userID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	n, ok := v.m[userID]
	if !ok {
		return 0, directory.ErrUserNotFound
	}
	return n, nil
}

func (v *versions) IncrementTokenVersion(_ context.Context, userID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.m[userID]; !ok {
		return 0, directory.ErrUserNotFound
	}
	v.m[userID]++
	return v.m[userID], nil
}

type fixture struct {
	mr       *miniredis.Miniredis
	store    *redis.Client
	versions *versions
	manager  *Manager
	now      time.Time
	user     *directory.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := &fixture{
		mr:       mr,
		store:    redis.Wrap(rdb),
		versions: &versions{m: map[string]int64{"u1": 1, "u2": 1}},
		now:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		user:     &directory.User{ID: "u1", TokenVersion: 1},
	}
	m, err := NewManager(f.store, f.versions, Config{}, WithClock(func() time.Time { return f.now }), WithLogger(log.Nop()))
	require.NoError(t, err)
	f.manager = m
	return f
}

func TestNewManagerRejectsShortTokens(t *testing.T) {
	f := newFixture(t)
	for _, n := range []int{1, 16, MinTokenBytes - 1} {
		_, err := NewManager(f.store, f.versions, Config{TokenBytes: n})
		assert.True(t, kerrors.IsConfiguration(err), "token_bytes=%d", n)
	}

	m, err := NewManager(f.store, f.versions, Config{TokenBytes: MinTokenBytes}, WithLogger(log.Nop()))
	require.NoError(t, err)
	issued, err := m.Create(context.Background(), f.user, "ip", "ua")
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(issued.RefreshToken)
	require.NoError(t, err)
	assert.Len(t, raw, MinTokenBytes)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.manager.Create(ctx, f.user, "", "")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(issued.RefreshToken)
	require.NoError(t, err)
	assert.Len(t, raw, 64)
	assert.Len(t, issued.Session.SessionID, 32)
	assert.Equal(t, f.now.Add(7*24*time.Hour), issued.ExpiresAt)
	assert.Equal(t, "u1", issued.UserID())

	data, err := f.mr.Get("auth:session:" + issued.Session.SessionID)
	require.NoError(t, err)
	var s Session
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	assert.Equal(t, "unknown", s.IPAddress)
	assert.Equal(t, "unknown", s.UserAgent)
	assert.EqualValues(t, 1, s.TokenVersion)

	sid, err := f.mr.Get("auth:refresh:" + issued.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, issued.Session.SessionID, sid)

	members, err := f.mr.Members("auth:user-sessions:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{sid}, members)

	assert.Equal(t, 7*24*time.Hour, f.mr.TTL("auth:session:"+sid))
	assert.Equal(t, 7*24*time.Hour, f.mr.TTL("auth:refresh:"+issued.RefreshToken))
	assert.Equal(t, 7*24*time.Hour, f.mr.TTL("auth:user-sessions:u1"))
}

func TestRotate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.Create(ctx, f.user, "10.0.0.1", "curl")
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	second, err := f.manager.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.ExpiresAt, second.ExpiresAt, "rotation keeps the session deadline")
	assert.Equal(t, first.Session.SessionID, second.Session.SessionID)
	assert.Equal(t, 7*24*time.Hour-time.Hour, f.mr.TTL("auth:refresh:"+second.RefreshToken))

	_, err = f.manager.Rotate(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "old token is single use")

	_, err = f.manager.Rotate(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.Rotate(ctx, issued.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRotateRevokedVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)

	f.versions.m["u1"] = 2
	_, err = f.manager.Rotate(ctx, issued.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	assert.False(t, f.mr.Exists("auth:refresh:"+issued.RefreshToken), "presented token is consumed")
}

func TestRotateMissingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued, err := f.manager.Create(ctx, &directory.User{ID: "ghost", TokenVersion: 1}, "ip", "ua")
	require.NoError(t, err)

	_, err = f.manager.Rotate(ctx, issued.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRotateExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	f.mr.Del("auth:session:" + issued.Session.SessionID)
	_, err = f.manager.Rotate(ctx, issued.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionExpired)

	issued, err = f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	f.now = issued.ExpiresAt.Add(time.Second)
	_, err = f.manager.Rotate(ctx, issued.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestDestroy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	gone, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)

	sid, uid, err := f.manager.Destroy(ctx, gone.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, gone.Session.SessionID, sid)
	assert.Equal(t, "u1", uid)
	assert.False(t, f.mr.Exists("auth:session:"+sid))
	assert.False(t, f.mr.Exists("auth:refresh:"+gone.RefreshToken))

	members, err := f.mr.Members("auth:user-sessions:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{keep.Session.SessionID}, members)

	_, _, err = f.manager.Destroy(ctx, gone.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDestroyWithExpiredRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issued, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	f.mr.Del("auth:session:" + issued.Session.SessionID)

	sid, uid, err := f.manager.Destroy(ctx, issued.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, issued.Session.SessionID, sid)
	assert.Empty(t, uid)
	assert.False(t, f.mr.Exists("auth:refresh:"+issued.RefreshToken))
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	_, err = f.manager.Create(ctx, f.user, "ip", "ua")
	require.NoError(t, err)
	other, err := f.manager.Create(ctx, &directory.User{ID: "u2", TokenVersion: 1}, "ip", "ua")
	require.NoError(t, err)
	f.mr.Del("auth:session:" + a.Session.SessionID)

	n, err := f.manager.RevokeAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only records that still existed are counted")
	assert.EqualValues(t, 2, f.versions.m["u1"])
	assert.False(t, f.mr.Exists("auth:user-sessions:u1"))

	_, err = f.manager.Rotate(ctx, a.RefreshToken)
	assert.Error(t, err)

	_, err = f.manager.Rotate(ctx, other.RefreshToken)
	assert.NoError(t, err, "other users are unaffected")

	n, err = f.manager.RevokeAll(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.EqualValues(t, 3, f.versions.m["u1"])

	_, err = f.manager.RevokeAll(ctx, "nobody")
	assert.ErrorIs(t, err, directory.ErrUserNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	older, err := f.manager.Create(ctx, f.user, "1.1.1.1", "firefox")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	newer, err := f.manager.Create(ctx, f.user, "2.2.2.2", "chrome")
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	stale, err := f.manager.Create(ctx, f.user, "3.3.3.3", "safari")
	require.NoError(t, err)
	f.mr.Del("auth:session:" + stale.Session.SessionID)

	list, err := f.manager.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.Session.SessionID, list[0].SessionID)
	assert.Equal(t, older.Session.SessionID, list[1].SessionID)
	assert.Equal(t, "chrome", list[0].UserAgent)

	members, err := f.mr.Members("auth:user-sessions:u1")
	require.NoError(t, err)
	assert.Len(t, members, 2, "stale entry pruned")

	empty, err := f.manager.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
