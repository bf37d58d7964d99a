package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/totegamma/roulette/internal/domain"
)

func TestDirectoryFetchEligibleUsers(t *testing.T) {
	source := &fakeMembers{members: []domain.Member{
		{ID: "U1", Name: "alice", RealName: "alice   SMITH"},
		{ID: "U2", Name: "bob", RealName: "Bob", ProfileRealName: "  bobby   tables "},
		{ID: "U3", Name: "gone", Deleted: true},
		{ID: "U4", Name: "robot", IsBot: true},
		{ID: "U5", Name: "guest", IsRestricted: true},
		{ID: "U6", Name: "excluded"},
		{ID: "U7", Name: "carol", RealName: "carol"},
		{ID: "U8", Name: "", RealName: "nobody"},
	}}
	dir := NewDirectory(source, DirectoryOptions{
		Excluded:      []string{"U6"},
		Contacts:      map[string]string{"U7": "carol.c@corp.example", "U1": "asmith"},
		ContactDomain: "example.com",
	})

	got := dir.FetchEligibleUsers(context.Background())

	require.Equal(t, []domain.User{
		{ID: "U1", DisplayName: "Alice Smith", ContactAddress: "asmith@example.com"},
		{ID: "U2", DisplayName: "Bobby Tables", ContactAddress: "bob@example.com"},
		{ID: "U7", DisplayName: "Carol", ContactAddress: "carol.c@corp.example"},
	}, got)
}

func TestDirectoryIncludeRestricted(t *testing.T) {
	source := &fakeMembers{members: []domain.Member{
		{ID: "U5", Name: "guest", RealName: "guest", IsRestricted: true},
		{ID: "U9", Name: "single", RealName: "single", IsUltraRestricted: true},
	}}
	dir := NewDirectory(source, DirectoryOptions{ContactDomain: "example.com", IncludeRestricted: true})

	got := dir.FetchEligibleUsers(context.Background())
	require.Len(t, got, 2)
}

func TestDirectoryWithoutContactExcludesUser(t *testing.T) {
	source := &fakeMembers{members: []domain.Member{
		{ID: "U1", Name: "alice", RealName: "alice"},
		{ID: "U2", Name: "bob", RealName: "bob"},
	}}
	dir := NewDirectory(source, DirectoryOptions{Contacts: map[string]string{"U2": "bob@corp.example"}})

	got := dir.FetchEligibleUsers(context.Background())
	require.Equal(t, []domain.User{{ID: "U2", DisplayName: "Bob", ContactAddress: "bob@corp.example"}}, got)
}

func TestDirectoryFetchFailureYieldsEmpty(t *testing.T) {
	dir := NewDirectory(&fakeMembers{err: errors.New("invalid_auth")}, DirectoryOptions{ContactDomain: "example.com"})

	got := dir.FetchEligibleUsers(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestDirectoryCacheSnapshotIsIsolated(t *testing.T) {
	source := &fakeMembers{members: members("A", "B", "C")}
	cache := NewDirectoryCache(NewDirectory(source, DirectoryOptions{ContactDomain: "example.com"}), 0)
	ctx := context.Background()

	require.Equal(t, 3, cache.Warm(ctx))

	snap := cache.Snapshot(ctx)
	snap = snap[:1]
	snap[0].DisplayName = "mutated"

	again := cache.Snapshot(ctx)
	require.Len(t, again, 3)
	require.Equal(t, "User A", again[0].DisplayName)
	require.Equal(t, 1, source.calls)
	require.Equal(t, "B@example.com", again[1].ContactAddress)
}

func TestDirectoryCacheRetriesAfterEmptyFetch(t *testing.T) {
	source := &fakeMembers{err: errors.New("timeout")}
	cache := NewDirectoryCache(NewDirectory(source, DirectoryOptions{ContactDomain: "example.com"}), 0)
	ctx := context.Background()

	require.Equal(t, 0, cache.Len(ctx))

	source.err = nil
	source.members = members("A", "B")
	require.Equal(t, 2, cache.Len(ctx))
	require.Equal(t, 2, source.calls)
}

func TestDirectoryCacheRefreshesAfterInterval(t *testing.T) {
	source := &fakeMembers{members: members("A", "B")}
	cache := NewDirectoryCache(NewDirectory(source, DirectoryOptions{ContactDomain: "example.com"}), 50*time.Millisecond)
	ctx := context.Background()

	require.Equal(t, 2, cache.Warm(ctx))

	source.members = members("A", "B", "C")
	require.Equal(t, 2, cache.Len(ctx))
	require.Equal(t, 1, source.calls)

	time.Sleep(80 * time.Millisecond)
	require.Equal(t, 3, cache.Len(ctx))
	require.Equal(t, 2, source.calls)
}
