package usecase

import (
	"slices"

	"github.com/totegamma/roulette/internal/domain"
)

// Partition splits users into groups of two, folding an odd remainder into
// a final group of three. The input order is kept: pairs are taken from
// the end, so the last user always lands in the first group.
func Partition(users []domain.User) ([]domain.Group, error) {
	if len(users) < 2 {
		return nil, domain.ErrInsufficientUsers
	}

	remaining := slices.Clone(users)
	groups := make([]domain.Group, 0, len(users)/2)
	for len(remaining) >= 4 {
		n := len(remaining)
		groups = append(groups, domain.Group{remaining[n-1], remaining[n-2]})
		remaining = remaining[:n-2]
	}

	last := make(domain.Group, 0, len(remaining))
	for i := len(remaining) - 1; i >= 0; i-- {
		last = append(last, remaining[i])
	}
	return append(groups, last), nil
}
