package util

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SafeSetLimit sets the concurrency limit of g. errgroup panics on a limit of 0, so a limit that is not
// positive falls back to GOMAXPROCS. The effective limit is returned.
func SafeSetLimit(g *errgroup.Group, limit int) int {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g.SetLimit(limit)

	return limit
}
