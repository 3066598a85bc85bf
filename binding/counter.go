package binding

import (
	"context"
	"fmt"
)

// Counter is a stateful object holding a single count. AddCount updates it
// in the adapter; AddNativeCount has the delegate compute the new value.
// Both update the same count.
//
// Counter is NOT thread-safe.
type Counter struct {
	adapter *Adapter
	count   int32
}

// Count returns the current count.
func (c *Counter) Count() int32 {
	return c.count
}

// AddCount adds n and returns the new count. On error the count is unchanged.
func (c *Counter) AddCount(n any) (int32, error) {
	if err := c.adapter.checkOpen(); err != nil {
		return c.count, err
	}
	d, err := toInt32([]string{"TestClass", "addCount", "n"}, n)
	if err != nil {
		return c.count, err
	}
	next, err := checkedAdd([]string{"TestClass", "addCount"}, c.count, d)
	if err != nil {
		return c.count, err
	}
	c.count = next
	return c.count, nil
}

// AddNativeCount adds n through the delegate and returns the new count.
// On error the count is unchanged.
func (c *Counter) AddNativeCount(ctx context.Context, n any) (int32, error) {
	if err := c.adapter.checkOpen(); err != nil {
		return c.count, err
	}
	d, err := toInt32([]string{"TestClass", "addNativeCount", "n"}, n)
	if err != nil {
		return c.count, err
	}
	if _, err := checkedAdd([]string{"TestClass", "addNativeCount"}, c.count, d); err != nil {
		return c.count, err
	}
	next, err := c.adapter.delegate.Accumulate(ctx, c.count, d)
	if err != nil {
		return c.count, err
	}
	c.count = next
	return c.count, nil
}

func (c *Counter) String() string {
	return fmt.Sprintf("TestClass { count: %d }", c.count)
}
