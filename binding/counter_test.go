package binding

import (
	"context"
	"math"
	"testing"

	"github.com/wippyai/wasm-binding/errors"
)

func TestCounter_SharedCount(t *testing.T) {
	ctx := context.Background()

	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			c, err := a.NewTestClass(1)
			if err != nil {
				t.Fatalf("NewTestClass: %v", err)
			}
			if c.Count() != 1 {
				t.Fatalf("Count() = %d, want 1", c.Count())
			}

			if got, err := c.AddCount(100); err != nil || got != 101 {
				t.Fatalf("AddCount(100) = %d, %v; want 101", got, err)
			}
			if got, err := c.AddNativeCount(ctx, 100); err != nil || got != 201 {
				t.Fatalf("AddNativeCount(100) = %d, %v; want 201", got, err)
			}
			if c.Count() != 201 {
				t.Errorf("Count() = %d, want 201", c.Count())
			}
			if c.String() != "TestClass { count: 201 }" {
				t.Errorf("String() = %q", c.String())
			}
		})
	}
}

func TestCounter_ReverseOrder(t *testing.T) {
	ctx := context.Background()

	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			c, _ := a.NewTestClass(1)
			if got, _ := c.AddNativeCount(ctx, 100); got != 101 {
				t.Errorf("AddNativeCount(100) = %d, want 101", got)
			}
			if got, _ := c.AddCount(100); got != 201 {
				t.Errorf("AddCount(100) = %d, want 201", got)
			}
		})
	}
}

func TestCounter_Independent(t *testing.T) {
	a := adapters(t)[0]

	c1, _ := a.NewTestClass(0)
	c2, _ := a.NewTestClass(0)
	c1.AddCount(5)
	if c2.Count() != 0 {
		t.Errorf("counters share state: c2 = %d", c2.Count())
	}
}

func TestCounter_Overflow(t *testing.T) {
	ctx := context.Background()

	for _, a := range adapters(t) {
		t.Run(a.DelegateName(), func(t *testing.T) {
			c, _ := a.NewTestClass(math.MaxInt32)

			got, err := c.AddCount(1)
			if !errors.IsInvalidArgument(err) {
				t.Errorf("AddCount: expected overflow, got %v", err)
			}
			if got != math.MaxInt32 || c.Count() != math.MaxInt32 {
				t.Errorf("count changed on overflow: %d", c.Count())
			}

			if _, err := c.AddNativeCount(ctx, 1); !errors.IsInvalidArgument(err) {
				t.Errorf("AddNativeCount: expected overflow, got %v", err)
			}
			if c.Count() != math.MaxInt32 {
				t.Errorf("count changed on overflow: %d", c.Count())
			}
		})
	}
}

func TestCounter_InvalidArgument(t *testing.T) {
	a := adapters(t)[0]

	if _, err := a.NewTestClass("nope"); !errors.IsInvalidArgument(err) {
		t.Errorf("NewTestClass: expected invalid argument, got %v", err)
	}

	c, _ := a.NewTestClass(3)
	if _, err := c.AddCount(nil); !errors.IsInvalidArgument(err) {
		t.Errorf("AddCount(nil): expected invalid argument, got %v", err)
	}
	if _, err := c.AddNativeCount(context.Background(), []int{1}); !errors.IsInvalidArgument(err) {
		t.Errorf("AddNativeCount([]int): expected invalid argument, got %v", err)
	}
	if c.Count() != 3 {
		t.Errorf("count changed to %d", c.Count())
	}
}
