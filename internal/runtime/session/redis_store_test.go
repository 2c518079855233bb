// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TEST_SESSION_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_SESSION_REDIS_ADDR not set, skipping Redis session store tests")
	}
	st, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:      addr,
		KeyPrefix: "travel-agent-test:" + uuid.NewString() + ":",
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRedisStore_RoundTrip(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	s := New("")
	s.AgentID = "asst_1"
	s.ThreadID = "thread_1"
	s.AddMessage("user", "What is the weather like in New York?", "")
	require.NoError(t, st.Put(ctx, s))

	got, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "asst_1", got.AgentID)
	assert.Equal(t, "thread_1", got.ThreadID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "What is the weather like in New York?", got.Messages[0].Content)

	require.NoError(t, st.Delete(ctx, s.ID))
	got, err = st.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStore_RunLock(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := st.AcquireRunLock(ctx, "s1", "tok-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.AcquireRunLock(ctx, "s1", "tok-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.ReleaseRunLock(ctx, "s1", "tok-b"))
	ok, err = st.AcquireRunLock(ctx, "s1", "tok-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "foreign token must not release the lock")

	ok, err = st.RefreshRunLock(ctx, "s1", "tok-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = st.RefreshRunLock(ctx, "s1", "tok-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, st.ReleaseRunLock(ctx, "s1", "tok-a"))
	ok, err = st.AcquireRunLock(ctx, "s1", "tok-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, st.ReleaseRunLock(ctx, "s1", "tok-b"))
}

func TestRedisStore_RunLockExpiresWithoutRefresh(t *testing.T) {
	st := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := st.AcquireRunLock(ctx, "s1", "tok-a", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(120 * time.Millisecond)

	ok, err = st.RefreshRunLock(ctx, "s1", "tok-a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = st.AcquireRunLock(ctx, "s1", "tok-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, st.ReleaseRunLock(ctx, "s1", "tok-b"))
}

func TestNewRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	assert.Error(t, err)
}
