package calc

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru"
)

type cacheKey struct {
	q     Earnings
	state string
}

// Cached memoizes a Calculator.  Earnings are rounded to cents before lookup.
type Cached struct {
	calc  Calculator
	cache *lru.Cache
}

func NewCached(c Calculator, size int) (*Cached, error) {
	cache, e := lru.New(size)
	if e != nil {
		return nil, e
	}

	return &Cached{calc: c, cache: cache}, nil
}

func (c *Cached) WeeklyBenefit(ctx context.Context, q Earnings, state string) (float64, error) {
	var k cacheKey
	for ind, x := range q {
		k.q[ind] = math.Round(x*100) / 100
	}
	k.state = state

	if v, ok := c.cache.Get(k); ok {
		return v.(float64), nil
	}

	wba, e := c.calc.WeeklyBenefit(ctx, q, state)
	if e != nil {
		return 0, e
	}

	c.cache.Add(k, wba)

	return wba, nil
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
