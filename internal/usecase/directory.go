package usecase

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/totegamma/roulette/internal/domain"
)

// DirectoryOptions controls which roster members become eligible users.
type DirectoryOptions struct {
	Excluded          []string
	Contacts          map[string]string
	ContactDomain     string
	IncludeRestricted bool
}

// Directory turns the raw roster into eligible users.
type Directory struct {
	source   MemberDirectory
	opts     DirectoryOptions
	excluded map[string]struct{}
}

func NewDirectory(source MemberDirectory, opts DirectoryOptions) *Directory {
	excluded := make(map[string]struct{}, len(opts.Excluded))
	for _, id := range opts.Excluded {
		excluded[id] = struct{}{}
	}
	return &Directory{
		source:   source,
		opts:     opts,
		excluded: excluded,
	}
}

// FetchEligibleUsers never fails: a roster error yields an empty directory.
func (d *Directory) FetchEligibleUsers(ctx context.Context) []domain.User {
	ctx, span := tracer.Start(ctx, "Roulette.Usecase.FetchEligibleUsers")
	defer span.End()

	members, err := d.source.ListMembers(ctx)
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "failed to list workspace members",
			slog.String("error", err.Error()),
			slog.String("module", "directory"),
		)
		return []domain.User{}
	}

	caser := cases.Title(language.Und)
	return lo.FilterMap(members, func(m domain.Member, _ int) (domain.User, bool) {
		if !d.eligible(m) {
			return domain.User{}, false
		}
		address := d.contactAddress(m)
		if address == "" {
			slog.DebugContext(
				ctx, "skipping member without contact address",
				slog.String("user", m.ID),
				slog.String("module", "directory"),
			)
			return domain.User{}, false
		}
		return domain.User{
			ID:             m.ID,
			DisplayName:    normalizeName(caser, displayName(m)),
			ContactAddress: address,
		}, true
	})
}

func (d *Directory) eligible(m domain.Member) bool {
	if _, ok := d.excluded[m.ID]; ok {
		return false
	}
	if m.Deleted || m.IsBot {
		return false
	}
	if (m.IsRestricted || m.IsUltraRestricted) && !d.opts.IncludeRestricted {
		return false
	}
	return true
}

// contactAddress prefers the lookup table and falls back to handle@domain.
// An empty result removes the member from the pool.
func (d *Directory) contactAddress(m domain.Member) string {
	if address, ok := d.opts.Contacts[m.ID]; ok && strings.TrimSpace(address) != "" {
		address = strings.TrimSpace(address)
		if !strings.Contains(address, "@") && d.opts.ContactDomain != "" {
			address += "@" + d.opts.ContactDomain
		}
		return address
	}
	if d.opts.ContactDomain == "" || m.Name == "" {
		return ""
	}
	return m.Name + "@" + d.opts.ContactDomain
}

func displayName(m domain.Member) string {
	if strings.TrimSpace(m.ProfileRealName) != "" {
		return m.ProfileRealName
	}
	if strings.TrimSpace(m.RealName) != "" {
		return m.RealName
	}
	return m.Name
}

func normalizeName(caser cases.Caser, name string) string {
	return caser.String(strings.Join(strings.Fields(name), " "))
}

const directoryCacheKey = "directory"

// DirectoryCache holds the last fetched directory. Callers only ever get
// copies, so destructive sampling never touches the shared slice.
type DirectoryCache struct {
	directory *Directory
	cache     *cache.Cache
	mu        sync.Mutex
}

// NewDirectoryCache keeps the directory for the process lifetime unless a
// positive refresh interval is given.
func NewDirectoryCache(directory *Directory, refresh time.Duration) *DirectoryCache {
	expiration := cache.NoExpiration
	if refresh > 0 {
		expiration = refresh
	}
	return &DirectoryCache{
		directory: directory,
		cache:     cache.New(expiration, 0),
	}
}

func (c *DirectoryCache) users(ctx context.Context) []domain.User {
	if x, found := c.cache.Get(directoryCacheKey); found {
		return x.([]domain.User)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if x, found := c.cache.Get(directoryCacheKey); found {
		return x.([]domain.User)
	}

	users := c.directory.FetchEligibleUsers(ctx)
	if len(users) > 0 {
		c.cache.Set(directoryCacheKey, users, cache.DefaultExpiration)
	}
	return users
}

// Warm loads the directory and returns its size.
func (c *DirectoryCache) Warm(ctx context.Context) int {
	users := c.users(ctx)
	slog.InfoContext(
		ctx, "directory loaded",
		slog.Int("users", len(users)),
		slog.String("module", "directory"),
	)
	return len(users)
}

// Snapshot returns a working copy owned by the caller.
func (c *DirectoryCache) Snapshot(ctx context.Context) []domain.User {
	return slices.Clone(c.users(ctx))
}

func (c *DirectoryCache) Len(ctx context.Context) int {
	return len(c.users(ctx))
}
