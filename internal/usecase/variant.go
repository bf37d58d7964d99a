package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/totegamma/roulette/internal/domain"
)

const DefaultMaxGroupSize = 6

// ParseVariant maps the free-text command argument to a strategy pair.
func ParseVariant(text string, maxSize int) (domain.Variant, error) {
	if maxSize < 2 {
		maxSize = DefaultMaxGroupSize
	}

	arg := strings.ToLower(strings.TrimSpace(text))
	switch arg {
	case "":
		return domain.Variant{
			Selection: domain.SelectRequesterPlusActive,
			Grouping:  domain.GroupingPartition,
			Size:      2,
		}, nil
	case "channel", "all", "here":
		return domain.Variant{
			Selection: domain.SelectChannelRoster,
			Grouping:  domain.GroupingPartition,
		}, nil
	case "help":
		return domain.Variant{
			Selection: domain.SelectHelp,
			Grouping:  domain.GroupingNone,
		}, nil
	}

	n, err := strconv.Atoi(arg)
	if err != nil || n < 2 || n > maxSize {
		return domain.Variant{}, fmt.Errorf("%w: %q", domain.ErrInvalidArgument, strings.TrimSpace(text))
	}
	return domain.Variant{
		Selection: domain.SelectRequesterPlusActive,
		Grouping:  domain.GroupingPartition,
		Size:      n,
	}, nil
}

// Usage describes every variant.
func Usage(command string, maxSize int) string {
	if maxSize < 2 {
		maxSize = DefaultMaxGroupSize
	}
	return fmt.Sprintf(
		"`%[1]s` pairs you with an active colleague.\n"+
			"`%[1]s <n>` gathers n people including you (2 to %[2]d) and splits them into meetings.\n"+
			"`%[1]s channel` pairs every active member of this channel.",
		command, maxSize,
	)
}
