package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/domain"
)

func newTestBroadcaster(t *testing.T) (*RedisBroadcaster, *redis.Client) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedisBroadcaster(rc, "", logger), rc
}

func makeTask(t *testing.T, ownerID uuid.UUID, name string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(ownerID, domain.LocalizedText{"en": name})
	require.NoError(t, err)
	return task
}

// subscribe opens a subscription and waits until it is established, so a
// publish immediately afterwards is guaranteed to be seen.
func subscribe(t *testing.T, rc *redis.Client, channels ...string) *redis.PubSub {
	t.Helper()
	sub := rc.Subscribe(context.Background(), channels...)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)
	return sub
}

// drain reads exactly want envelopes, then asserts the channel stays quiet.
func drain(t *testing.T, sub *redis.PubSub, want int) []Envelope {
	t.Helper()
	var out []Envelope
	for i := 0; i < want; i++ {
		select {
		case msg := <-sub.Channel():
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
			out = append(out, env)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for envelope %d of %d", i+1, want)
		}
	}
	select {
	case msg := <-sub.Channel():
		t.Fatalf("unexpected extra envelope: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
	return out
}

func TestLifecycleEventsFanOutToOwnerAndGlobal(t *testing.T) {
	b, rc := newTestBroadcaster(t)
	ctx := context.Background()
	task := makeTask(t, uuid.New(), "A")

	cases := []struct {
		kind      Kind
		broadcast func()
	}{
		{KindCreated, func() { b.Created(ctx, task) }},
		{KindCompleted, func() { b.Completed(ctx, task) }},
		{KindDeleted, func() { b.Deleted(ctx, task) }},
		{KindRestored, func() { b.Restored(ctx, task) }},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			ownerSub := subscribe(t, rc, b.OwnerChannel(task.OwnerID))
			globalSub := subscribe(t, rc, b.GlobalChannel())

			tc.broadcast()

			for _, sub := range []*redis.PubSub{ownerSub, globalSub} {
				envs := drain(t, sub, 1)
				assert.Equal(t, tc.kind, envs[0].Event)
				require.NotNil(t, envs[0].Task)
				assert.Equal(t, task.ID, envs[0].Task.ID)
				assert.Empty(t, envs[0].ChangedFields)
				assert.False(t, envs[0].Timestamp.IsZero())
			}
		})
	}
}

func TestUpdatedCarriesChangedFields(t *testing.T) {
	b, rc := newTestBroadcaster(t)
	task := makeTask(t, uuid.New(), "A")

	ownerSub := subscribe(t, rc, b.OwnerChannel(task.OwnerID))
	globalSub := subscribe(t, rc, b.GlobalChannel())

	b.Updated(context.Background(), task, []string{"name", "priority"})

	for _, sub := range []*redis.PubSub{ownerSub, globalSub} {
		envs := drain(t, sub, 1)
		assert.Equal(t, KindUpdated, envs[0].Event)
		assert.Equal(t, []string{"name", "priority"}, envs[0].ChangedFields)
	}
}

func TestParentUpdatedFansOutPerChild(t *testing.T) {
	b, rc := newTestBroadcaster(t)
	ownerID := uuid.New()
	parent := makeTask(t, ownerID, "Parent")

	var children []*domain.Task
	for i := 0; i < 3; i++ {
		child := makeTask(t, ownerID, "Child")
		child.ParentID = &parent.ID
		children = append(children, child)
	}

	sub := subscribe(t, rc, b.OwnerChannel(ownerID))

	b.ParentUpdated(context.Background(), parent, children)

	envs := drain(t, sub, 3)
	seen := make(map[uuid.UUID]bool)
	for _, env := range envs {
		assert.Equal(t, KindParentUpdated, env.Event)
		require.NotNil(t, env.Parent)
		assert.Equal(t, parent.ID, env.Parent.ID)
		require.NotNil(t, env.Task)
		seen[env.Task.ID] = true
	}
	assert.Len(t, seen, 3, "each child gets its own envelope")
}

func TestParentUpdatedWithNoChildrenIsSilent(t *testing.T) {
	b, rc := newTestBroadcaster(t)
	parent := makeTask(t, uuid.New(), "Parent")

	sub := subscribe(t, rc, b.OwnerChannel(parent.OwnerID))
	b.ParentUpdated(context.Background(), parent, nil)
	drain(t, sub, 0)
}

func TestChildUpdated(t *testing.T) {
	b, rc := newTestBroadcaster(t)
	ownerID := uuid.New()
	parent := makeTask(t, ownerID, "Parent")
	subtask := makeTask(t, ownerID, "Sub")
	subtask.ParentID = &parent.ID

	t.Run("publishes both snapshots", func(t *testing.T) {
		sub := subscribe(t, rc, b.OwnerChannel(ownerID))

		b.ChildUpdated(context.Background(), subtask, parent)

		envs := drain(t, sub, 1)
		assert.Equal(t, KindSubtaskUpdated, envs[0].Event)
		assert.Equal(t, subtask.ID, envs[0].Task.ID)
		assert.Equal(t, parent.ID, envs[0].Parent.ID)
	})

	t.Run("root task publishes nothing", func(t *testing.T) {
		root := makeTask(t, ownerID, "Root")
		sub := subscribe(t, rc, b.OwnerChannel(ownerID))
		b.ChildUpdated(context.Background(), root, nil)
		drain(t, sub, 0)
	})

	t.Run("orphaned parent reference publishes nothing", func(t *testing.T) {
		sub := subscribe(t, rc, b.OwnerChannel(ownerID))
		b.ChildUpdated(context.Background(), subtask, nil)
		drain(t, sub, 0)
	})
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := NewRedisBroadcaster(rc, "", logger)

	m.Close()

	task := makeTask(t, uuid.New(), "A")
	// Must not panic or return anything; the caller's mutation already committed.
	b.Created(context.Background(), task)
	b.ParentUpdated(context.Background(), task, []*domain.Task{task})
}
