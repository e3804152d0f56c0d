package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcwatch "github.com/svcwatch/svcwatch"
)

func TestUserUniqueEmail(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Users.Create(ctx, &svcwatch.UserRecord{ID: "u1", Email: "a@example.com"}))
	err := store.Users.Create(ctx, &svcwatch.UserRecord{ID: "u2", Email: "a@example.com"})
	assert.ErrorIs(t, err, svcwatch.ErrEmailExists)

	require.NoError(t, store.Users.Create(ctx, &svcwatch.UserRecord{ID: "u2", Email: "b@example.com"}))
	err = store.Users.Update(ctx, &svcwatch.UserRecord{ID: "u2", Email: "a@example.com"})
	assert.ErrorIs(t, err, svcwatch.ErrEmailExists)
}

func TestServiceAssociationLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Services.Create(ctx, &svcwatch.ServiceRecord{ID: "s1", Name: "api", SubName: "api-eu"}))
	require.NoError(t, store.Services.Create(ctx, &svcwatch.ServiceRecord{ID: "s2", Name: "web", SubName: "web-eu"}))

	err := store.Services.Create(ctx, &svcwatch.ServiceRecord{ID: "s3", Name: "api", SubName: "api-us"})
	assert.ErrorIs(t, err, svcwatch.ErrServiceExists)

	_, err = store.Services.IsAssociated(ctx, "u1", "missing")
	assert.ErrorIs(t, err, svcwatch.ErrServiceNotFound)

	ok, err := store.Services.IsAssociated(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Services.ReplaceUserServices(ctx, "u1", []string{"s1", "s2"}))
	ok, err = store.Services.IsAssociated(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Replacing with a subset drops the missing link.
	require.NoError(t, store.Services.ReplaceUserServices(ctx, "u1", []string{"s2"}))
	ok, err = store.Services.IsAssociated(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.Services.ReplaceUserServices(ctx, "u1", []string{"s2", "missing"})
	assert.ErrorIs(t, err, svcwatch.ErrServiceNotFound)

	require.NoError(t, store.Services.Delete(ctx, "s2"))
	services, err := store.Services.UserServices(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, services)
}

func TestLogsNewestFirstWithPaging(t *testing.T) {
	store := New()
	ctx := context.Background()

	require.NoError(t, store.Services.Create(ctx, &svcwatch.ServiceRecord{ID: "s1", Name: "api", SubName: "api-eu"}))
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Logs.AppendLog(ctx, "s1", &svcwatch.ServiceLogEntry{
			StartTime: base.Add(time.Duration(i) * time.Minute),
			IsOK:      i%2 == 0,
		}))
	}

	entries, err := store.Logs.Logs(ctx, "s1", 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(5), entries[0].ID)
	assert.Equal(t, int64(4), entries[1].ID)

	entries, err = store.Logs.Logs(ctx, "s1", 4, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ID)
}

func TestListPaging(t *testing.T) {
	store := New()
	ctx := context.Background()
	base := time.Now()
	for i, id := range []string{"u1", "u2", "u3"} {
		require.NoError(t, store.Users.Create(ctx, &svcwatch.UserRecord{
			ID:        id,
			Email:     id + "@example.com",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	users, total, err := store.Users.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)

	users, total, err = store.Users.List(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, users)
}
