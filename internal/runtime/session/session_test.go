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
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	s := New("sid1")
	if s == nil || s.ID != "sid1" {
		t.Errorf("New: %+v", s)
	}
	s2 := New("")
	if s2.ID == "" {
		t.Error("empty id should generate id")
	}
}

func TestSession_AddMessage_CopyMessages(t *testing.T) {
	s := New("s1")
	s.AddMessage("user", "hello", "")
	s.AddMessage("assistant", "hi", "run_1")
	msgs := s.CopyMessages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hello" {
		t.Errorf("first message: %+v", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].RunID != "run_1" {
		t.Errorf("second message: %+v", msgs[1])
	}
	msgs[0].Content = "changed"
	if s.CopyMessages()[0].Content != "hello" {
		t.Error("CopyMessages should not share message structs")
	}
}

func TestSession_AddToolCall_Snapshot(t *testing.T) {
	s := New("s1")
	s.AgentID = "asst_1"
	s.ThreadID = "thread_1"
	s.AddToolCall("run_1", "call_1", `{"weather": "Rainy, 22°C"}`)
	snap := s.Snapshot()
	if snap.AgentID != "asst_1" || snap.ThreadID != "thread_1" {
		t.Errorf("Snapshot ids: %+v", snap)
	}
	if len(snap.ToolCalls) != 1 || snap.ToolCalls[0].ToolCallID != "call_1" {
		t.Errorf("Snapshot tool calls: %+v", snap.ToolCalls)
	}
}

func TestMemoryStore_RunLock(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	ok, err := st.AcquireRunLock(ctx, "s1", "tok-a", 0)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, _ = st.AcquireRunLock(ctx, "s1", "tok-b", 0)
	if ok {
		t.Fatal("second acquire should fail while held")
	}
	if err := st.ReleaseRunLock(ctx, "s1", "tok-a"); err != nil {
		t.Fatal(err)
	}
	ok, _ = st.AcquireRunLock(ctx, "s1", "tok-b", time.Millisecond)
	if !ok {
		t.Fatal("acquire after release should succeed")
	}
	time.Sleep(5 * time.Millisecond)
	ok, _ = st.AcquireRunLock(ctx, "s1", "tok-c", 0)
	if !ok {
		t.Fatal("expired lock should be reacquirable")
	}
}

func TestMemoryStore_RunLockOwnership(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	ok, _ := st.AcquireRunLock(ctx, "s1", "tok-a", 20*time.Millisecond)
	if !ok {
		t.Fatal("acquire failed")
	}
	// 其他持有者的 token 既不能释放也不能续期
	if err := st.ReleaseRunLock(ctx, "s1", "tok-b"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := st.AcquireRunLock(ctx, "s1", "tok-b", 0); ok {
		t.Fatal("release with a foreign token must keep the lock")
	}
	if ok, _ := st.RefreshRunLock(ctx, "s1", "tok-b", time.Minute); ok {
		t.Fatal("refresh with a foreign token must fail")
	}

	if ok, _ := st.RefreshRunLock(ctx, "s1", "tok-a", time.Minute); !ok {
		t.Fatal("owner refresh should succeed")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := st.AcquireRunLock(ctx, "s1", "tok-b", 0); ok {
		t.Fatal("refreshed lock should still be held")
	}

	// 过期后被他人取得，原持有者的释放不影响新锁
	st.mu.Lock()
	st.locks["s1"] = runLock{token: "tok-a", exp: time.Now().Add(-time.Second)}
	st.mu.Unlock()
	if ok, _ := st.RefreshRunLock(ctx, "s1", "tok-a", time.Minute); ok {
		t.Fatal("refresh of an expired lock must fail")
	}
	if ok, _ := st.AcquireRunLock(ctx, "s1", "tok-b", 0); !ok {
		t.Fatal("expired lock should be reacquirable")
	}
	_ = st.ReleaseRunLock(ctx, "s1", "tok-a")
	if ok, _ := st.AcquireRunLock(ctx, "s1", "tok-c", 0); ok {
		t.Fatal("stale owner must not release the new lock")
	}
}

func TestMemoryStore_GetPutDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	got, err := st.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("Get missing: %v %v", got, err)
	}
	s := New("s1")
	_ = st.Put(ctx, s)
	got, _ = st.Get(ctx, "s1")
	if got != s {
		t.Fatal("Get should return stored session")
	}
	_ = st.Delete(ctx, "s1")
	got, _ = st.Get(ctx, "s1")
	if got != nil {
		t.Fatal("session should be deleted")
	}
}
