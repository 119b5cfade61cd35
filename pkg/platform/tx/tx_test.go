package tx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAfterCommit(t *testing.T) {
	t.Run("runs immediately outside a unit of work", func(t *testing.T) {
		ran := false
		AfterCommit(context.Background(), func() { ran = true })
		assert.True(t, ran)
	})

	t.Run("defers until the owner runs the hooks", func(t *testing.T) {
		ctx, hooks, owner := WithHooks(context.Background())
		assert.True(t, owner)

		var order []int
		AfterCommit(ctx, func() { order = append(order, 1) })
		AfterCommit(ctx, func() { order = append(order, 2) })
		assert.Empty(t, order)

		hooks.Run()
		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("nested scopes share the outer collector", func(t *testing.T) {
		ctx, outer, _ := WithHooks(context.Background())
		inner, h, owner := WithHooks(ctx)
		assert.False(t, owner)
		assert.Same(t, outer, h)

		ran := false
		AfterCommit(inner, func() { ran = true })
		outer.Run()
		assert.True(t, ran)
	})

	t.Run("discard drops pending callbacks", func(t *testing.T) {
		ctx, hooks, _ := WithHooks(context.Background())
		ran := false
		AfterCommit(ctx, func() { ran = true })
		hooks.Discard()
		hooks.Run()
		assert.False(t, ran)
	})
}
