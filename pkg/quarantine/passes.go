package quarantine

import (
	"context"
	"math"

	"github.com/dkoosis/quarantine/pkg/testrun"
)

// SuccessivePasses counts the consecutive most recent builds in which fullName
// passed. Builds without the test neither break nor extend the streak; a
// failure or a skip ends it.
func (r *Resolver) SuccessivePasses(ctx context.Context, fullName string) (int, error) {
	return r.SuccessivePassesAt(ctx, math.MaxInt, fullName)
}

// SuccessivePassesAt is SuccessivePasses counted from build back. On a traversal
// error the streak found so far is returned with the error.
func (r *Resolver) SuccessivePassesAt(ctx context.Context, build int, fullName string) (int, error) {
	from := build
	if from < math.MaxInt {
		from++
	}
	var err error
	count := 0
	for b := range r.backward(ctx, from, &err) {
		outcome, ok := b.Outcome(fullName)
		if !ok {
			continue
		}
		if outcome != testrun.Pass {
			return count, nil
		}
		count++
	}
	return count, err
}
