package sessions

import (
	"sync"
	"testing"
)

func TestGetCreatesDefaultSession(t *testing.T) {
	store := NewMemoryStore()

	sess := store.Get(42)
	if sess.Stage != StageStart {
		t.Fatalf("stage = %s, expected %s", sess.Stage, StageStart)
	}
	if sess.RetryCount != 0 {
		t.Fatalf("retry count = %d, expected 0", sess.RetryCount)
	}

	counts := store.Counts()
	if counts[StageStart] != 1 {
		t.Fatalf("counts[start] = %d, expected 1", counts[StageStart])
	}
}

func TestStageAndRetryMutations(t *testing.T) {
	store := NewMemoryStore()

	store.SetStage(1, StageAwaitingCheck)
	if got := store.IncrementRetry(1); got != 1 {
		t.Fatalf("first increment = %d, expected 1", got)
	}
	if got := store.IncrementRetry(1); got != 2 {
		t.Fatalf("second increment = %d, expected 2", got)
	}

	sess := store.Get(1)
	if sess.Stage != StageAwaitingCheck || sess.RetryCount != 2 {
		t.Fatalf("session = %+v", sess)
	}

	store.ResetRetry(1)
	if got := store.Get(1).RetryCount; got != 0 {
		t.Fatalf("retry after reset = %d, expected 0", got)
	}
	if got := store.Get(1).Stage; got != StageAwaitingCheck {
		t.Fatalf("reset must not touch the stage, got %s", got)
	}
}

func TestUsersAreIndependent(t *testing.T) {
	store := NewMemoryStore()

	store.IncrementRetry(1)
	store.SetStage(2, StageCompleted)

	if got := store.Get(2).RetryCount; got != 0 {
		t.Fatalf("user 2 retry = %d, expected 0", got)
	}
	if got := store.Get(1).Stage; got != StageStart {
		t.Fatalf("user 1 stage = %s, expected %s", got, StageStart)
	}
}

func TestConcurrentIncrementsSerialize(t *testing.T) {
	store := NewMemoryStore()
	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				store.IncrementRetry(7)
			}
		}()
	}
	wg.Wait()

	if got := store.Get(7).RetryCount; got != workers*perWorker {
		t.Fatalf("retry count = %d, expected %d", got, workers*perWorker)
	}
}
