package stores

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagentic/a2a-core/pkg/a2a"
)

func seedTask(t *testing.T, store *InMemoryTaskStore, id, contextID string, states ...a2a.TaskState) {
	t.Helper()
	ctx := context.Background()

	task := a2a.NewTask(id, contextID)
	_, rpcErr := store.Append(ctx, id, task, nil)
	require.Nil(t, rpcErr)

	for _, state := range states {
		su := a2a.NewStatusUpdate(id, contextID, a2a.NewTaskStatus(state, nil), state.Terminal())
		_, rpcErr = store.Append(ctx, id, su, nil)
		require.Nil(t, rpcErr)
	}
}

func TestAppend_VersionsAreContiguous(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		v, rpcErr := store.Append(ctx, "t1", a2a.NewTextMessage(a2a.RoleAgent, "x"), nil)
		require.Nil(t, rpcErr)
		assert.Equal(t, int64(i), v)
	}
	assert.Equal(t, int64(4), store.LatestVersion(ctx, "t1"))
	assert.True(t, store.Exists(ctx, "t1"))
	assert.False(t, store.Exists(ctx, "other"))
}

func TestAppend_ExpectedVersionConflict(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	zero := int64(0)
	v, rpcErr := store.Append(ctx, "t1", a2a.NewTask("t1", "c1"), &zero)
	require.Nil(t, rpcErr)
	assert.Equal(t, int64(0), v)

	_, rpcErr = store.Append(ctx, "t1", a2a.NewTask("t1", "c1"), &zero)
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)
	assert.Equal(t, int64(0), store.LatestVersion(ctx, "t1"))
}

func TestProjection_StatusMessageSupersession(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1")

	working := a2a.NewStatusUpdate("t1", "c1",
		a2a.NewTaskStatus(a2a.TaskStateWorking, a2a.NewTextMessage(a2a.RoleAgent, "thinking")), false)
	_, rpcErr := store.Append(ctx, "t1", working, nil)
	require.Nil(t, rpcErr)

	completed := a2a.NewStatusUpdate("t1", "c1", a2a.NewTaskStatus(a2a.TaskStateCompleted, nil), true)
	_, rpcErr = store.Append(ctx, "t1", completed, nil)
	require.Nil(t, rpcErr)

	task, rpcErr := store.GetTask(ctx, "t1")
	require.Nil(t, rpcErr)
	require.NotNil(t, task)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	// superseded status message moved into history
	require.Len(t, task.History, 1)
	assert.Equal(t, "thinking", task.History[0].Parts[0].Text)
}

func TestProjection_ReplayMatchesInline(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1", a2a.TaskStateWorking)
	au := a2a.NewArtifactUpdate("t1", "c1", a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.NewTextPart("one")}})
	_, rpcErr := store.Append(ctx, "t1", au, nil)
	require.Nil(t, rpcErr)

	delta := a2a.NewArtifactUpdate("t1", "c1", a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.NewTextPart("two")}})
	delta.Append = true
	_, rpcErr = store.Append(ctx, "t1", delta, nil)
	require.Nil(t, rpcErr)

	events, rpcErr := store.Read(ctx, "t1", 0)
	require.Nil(t, rpcErr)
	require.Len(t, events, 4)

	inline, rpcErr := store.GetTask(ctx, "t1")
	require.Nil(t, rpcErr)
	replayed := Replay(events)
	assert.Equal(t, inline, replayed)

	// projecting a prefix twice is idempotent
	assert.Equal(t, Replay(events[:2]), Replay(events[:2]))
}

func TestGetTask_ReturnsDefensiveCopy(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1", a2a.TaskStateWorking)

	first, rpcErr := store.GetTask(ctx, "t1")
	require.Nil(t, rpcErr)
	first.Status.State = a2a.TaskStateFailed
	first.History = append(first.History, *a2a.NewTextMessage(a2a.RoleUser, "junk"))

	second, rpcErr := store.GetTask(ctx, "t1")
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateWorking, second.Status.State)
	assert.Empty(t, second.History)
}

func TestGetTask_UnknownIsNil(t *testing.T) {
	store := NewInMemoryTaskStore()
	task, rpcErr := store.GetTask(context.Background(), "missing")
	require.Nil(t, rpcErr)
	assert.Nil(t, task)

	events, rpcErr := store.Read(context.Background(), "missing", 0)
	require.Nil(t, rpcErr)
	assert.Empty(t, events)
}

func TestGetTaskWithVersion(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1", a2a.TaskStateWorking)

	task, version, rpcErr := store.GetTaskWithVersion(ctx, "t1")
	require.Nil(t, rpcErr)
	require.NotNil(t, task)
	assert.Equal(t, int64(1), version)

	_, version, rpcErr = store.GetTaskWithVersion(ctx, "missing")
	require.Nil(t, rpcErr)
	assert.Equal(t, int64(-1), version)
}

func TestSubscribe_CatchUpThenLive(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seedTask(t, store, "t1", "c1", a2a.TaskStateWorking)

	sub, rpcErr := store.Subscribe(ctx, "t1", -1)
	require.Nil(t, rpcErr)

	// catch-up events
	env := <-sub
	assert.Equal(t, int64(0), env.Version)
	assert.Equal(t, a2a.KindTask, env.Event.EventKind())

	env = <-sub
	assert.Equal(t, int64(1), env.Version)

	// live event after a concurrent append
	done := a2a.NewStatusUpdate("t1", "c1", a2a.NewTaskStatus(a2a.TaskStateCompleted, nil), true)
	_, rpcErr = store.Append(ctx, "t1", done, nil)
	require.Nil(t, rpcErr)

	env, ok := <-sub
	require.True(t, ok)
	assert.Equal(t, int64(2), env.Version)
	assert.True(t, a2a.Terminal(env.Event))

	_, ok = <-sub
	assert.False(t, ok, "stream terminates after the terminal event")
}

func TestSubscribe_NoDuplicatesAcrossHandoff(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seedTask(t, store, "t1", "c1")

	var wg sync.WaitGroup
	wg.Add(1)
	seen := make(map[int64]int)
	go func() {
		defer wg.Done()
		sub, _ := store.Subscribe(ctx, "t1", -1)
		for env := range sub {
			seen[env.Version]++
		}
	}()

	for i := 0; i < 10; i++ {
		state := a2a.TaskStateWorking
		final := false
		if i == 9 {
			state = a2a.TaskStateCompleted
			final = true
		}
		_, rpcErr := store.Append(ctx, "t1",
			a2a.NewStatusUpdate("t1", "c1", a2a.NewTaskStatus(state, nil), final), nil)
		require.Nil(t, rpcErr)
	}

	wg.Wait()
	for v := int64(0); v <= 10; v++ {
		assert.Equal(t, 1, seen[v], "version %d delivered exactly once", v)
	}
}

func TestSubscribe_ConcurrentAppendsDeliverInOrder(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seedTask(t, store, "t1", "c1")

	sub, rpcErr := store.Subscribe(ctx, "t1", 0)
	require.Nil(t, rpcErr)

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, rpcErr := store.Append(ctx, "t1",
					a2a.NewStatusUpdate("t1", "c1", a2a.NewTaskStatus(a2a.TaskStateWorking, nil), false), nil)
				assert.Nil(t, rpcErr)
			}
		}()
	}

	// Every version arrives exactly once and in order; a late-arriving
	// version must not be dropped by the dedup cursor.
	for want := int64(1); want <= writers*perWriter; want++ {
		select {
		case env, ok := <-sub:
			require.True(t, ok)
			require.Equal(t, want, env.Version)
		case <-ctx.Done():
			t.Fatalf("timed out waiting for version %d", want)
		}
	}

	wg.Wait()
}

func TestSubscribe_CompletedTaskYieldsHistoryThenCloses(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1", a2a.TaskStateCompleted)

	sub, rpcErr := store.Subscribe(ctx, "t1", -1)
	require.Nil(t, rpcErr)

	var versions []int64
	for env := range sub {
		versions = append(versions, env.Version)
	}
	assert.Equal(t, []int64{0, 1}, versions)
}

func TestSubscribe_CancellationDeregisters(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx, cancel := context.WithCancel(context.Background())

	seedTask(t, store, "t1", "c1")

	sub, rpcErr := store.Subscribe(ctx, "t1", 0)
	require.Nil(t, rpcErr)

	cancel()
	for range sub {
	}

	// subscriber goroutine must have deregistered
	l := store.log("t1")
	assert.Eventually(t, func() bool {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		return len(l.subs) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestListTasks_FilterSortPaginate(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "ctx-a", a2a.TaskStateWorking)
	time.Sleep(5 * time.Millisecond)
	seedTask(t, store, "t2", "ctx-a", a2a.TaskStateCompleted)
	time.Sleep(5 * time.Millisecond)
	seedTask(t, store, "t3", "ctx-b", a2a.TaskStateWorking)

	// filter by context
	page, rpcErr := store.ListTasks(ctx, a2a.ListTasksParams{ContextID: "ctx-a"})
	require.Nil(t, rpcErr)
	assert.Equal(t, 2, page.TotalSize)

	// filter by state
	page, rpcErr = store.ListTasks(ctx, a2a.ListTasksParams{State: a2a.TaskStateWorking})
	require.Nil(t, rpcErr)
	assert.Equal(t, 2, page.TotalSize)

	// newest status first
	page, rpcErr = store.ListTasks(ctx, a2a.ListTasksParams{})
	require.Nil(t, rpcErr)
	require.Len(t, page.Tasks, 3)
	assert.Equal(t, "t3", page.Tasks[0].ID)

	// pagination
	page, rpcErr = store.ListTasks(ctx, a2a.ListTasksParams{PageSize: 2})
	require.Nil(t, rpcErr)
	assert.Len(t, page.Tasks, 2)
	assert.Equal(t, "2", page.NextPageToken)

	page, rpcErr = store.ListTasks(ctx, a2a.ListTasksParams{PageSize: 2, PageToken: "2"})
	require.Nil(t, rpcErr)
	assert.Len(t, page.Tasks, 1)
	assert.Empty(t, page.NextPageToken)
}

func TestListTasks_InvalidPageToken(t *testing.T) {
	store := NewInMemoryTaskStore()

	for _, token := range []string{"abc", "-1", "1.5"} {
		_, rpcErr := store.ListTasks(context.Background(), a2a.ListTasksParams{PageToken: token})
		require.NotNil(t, rpcErr, token)
		assert.Equal(t, -32602, rpcErr.Code)
	}
}

func TestListTasks_HistoryAndArtifactShaping(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	seedTask(t, store, "t1", "c1")
	for i := 0; i < 3; i++ {
		_, rpcErr := store.Append(ctx, "t1", a2a.NewTextMessage(a2a.RoleUser, "msg"), nil)
		require.Nil(t, rpcErr)
	}
	au := a2a.NewArtifactUpdate("t1", "c1", a2a.Artifact{ArtifactID: "a1", Parts: []a2a.Part{a2a.NewTextPart("x")}})
	_, rpcErr := store.Append(ctx, "t1", au, nil)
	require.Nil(t, rpcErr)

	// default: artifacts stripped, history untouched
	page, rpcErr := store.ListTasks(ctx, a2a.ListTasksParams{})
	require.Nil(t, rpcErr)
	require.Len(t, page.Tasks, 1)
	assert.Nil(t, page.Tasks[0].Artifacts)
	assert.Len(t, page.Tasks[0].History, 3)

	one := 1
	page, rpcErr = store.ListTasks(ctx, a2a.ListTasksParams{HistoryLength: &one, IncludeArtifacts: true})
	require.Nil(t, rpcErr)
	require.Len(t, page.Tasks, 1)
	assert.Len(t, page.Tasks[0].History, 1)
	assert.Len(t, page.Tasks[0].Artifacts, 1)
}

func TestAppend_ConcurrentWritersStayContiguous(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				_, rpcErr := store.Append(ctx, "t1", a2a.NewTextMessage(a2a.RoleAgent, "x"), nil)
				assert.Nil(t, rpcErr)
			}
		}()
	}
	wg.Wait()

	events, rpcErr := store.Read(ctx, "t1", 0)
	require.Nil(t, rpcErr)
	require.Len(t, events, 200)
	for i, env := range events {
		assert.Equal(t, int64(i), env.Version)
	}
}
