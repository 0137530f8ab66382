package course

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestIsCompleted(t *testing.T) {
	mod := &Module{ID: "cm1", PassGradeRequired: false}
	graded := &Module{ID: "cm2", PassGradeRequired: true}

	t.Run("complete counts", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", Complete, base)
		o := NewOracleForMembers(src, []string{"u1"})
		assert.True(t, o.IsCompleted(mod))
	})

	t.Run("complete with pass counts", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm2", "u1", CompletePass, base)
		o := NewOracleForMembers(src, []string{"u1"})
		assert.True(t, o.IsCompleted(graded))
	})

	t.Run("fail counts only without a pass-grade rule", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", CompleteFail, base)
		src.Set("cm2", "u1", CompleteFail, base)
		o := NewOracleForMembers(src, []string{"u1"})

		assert.True(t, o.IsCompleted(mod))
		assert.False(t, o.IsCompleted(graded))
	})

	t.Run("any member completing is enough", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u2", Complete, base)
		o := NewOracleForMembers(src, []string{"u1", "u2", "u3"})
		assert.True(t, o.IsCompleted(mod))
	})

	t.Run("incomplete everywhere is not completed", func(t *testing.T) {
		o := NewOracleForMembers(NewMemorySource(), []string{"u1"})
		assert.False(t, o.IsCompleted(mod))
	})
}

func TestCompletionOrder(t *testing.T) {
	m1 := &Module{ID: "cm1"}
	m2 := &Module{ID: "cm2"}
	m3 := &Module{ID: "cm3"}

	t.Run("sorted ascending by earliest member timestamp", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", Complete, base.Add(3*time.Hour))
		src.Set("cm2", "u1", Complete, base.Add(1*time.Hour))
		src.Set("cm3", "u1", CompletePass, base.Add(2*time.Hour))
		o := NewOracleForMembers(src, []string{"u1"})

		assert.Equal(t, []string{"cm2", "cm3", "cm1"}, o.CompletionOrder([]*Module{m1, m2, m3}))
	})

	t.Run("earliest timestamp across members wins", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", Complete, base.Add(5*time.Hour))
		src.Set("cm1", "u2", Complete, base.Add(1*time.Hour))
		src.Set("cm2", "u1", Complete, base.Add(2*time.Hour))
		o := NewOracleForMembers(src, []string{"u1", "u2"})

		assert.Equal(t, []string{"cm1", "cm2"}, o.CompletionOrder([]*Module{m1, m2}))
	})

	t.Run("ties keep input order", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", Complete, base)
		src.Set("cm2", "u1", Complete, base)
		o := NewOracleForMembers(src, []string{"u1"})

		assert.Equal(t, []string{"cm1", "cm2"}, o.CompletionOrder([]*Module{m1, m2}))
		assert.Equal(t, []string{"cm2", "cm1"}, o.CompletionOrder([]*Module{m2, m1}))
	})

	t.Run("fail without pass-grade rule is completed but never ordered", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", CompleteFail, base)
		o := NewOracleForMembers(src, []string{"u1"})

		assert.True(t, o.IsCompleted(m1))
		assert.Empty(t, o.CompletionOrder([]*Module{m1}))
	})

	t.Run("missing timestamps are dropped", func(t *testing.T) {
		src := NewMemorySource()
		src.Set("cm1", "u1", Complete, time.Time{})
		o := NewOracleForMembers(src, []string{"u1"})

		assert.Empty(t, o.CompletionOrder([]*Module{m1}))
	})
}

func TestNewOracle(t *testing.T) {
	groups := &MemoryGroups{Groups: map[string][]string{
		"grp1": {"u2", "u3"},
		"grp2": {},
	}}

	t.Run("group resolves to member list", func(t *testing.T) {
		o, err := NewOracle(context.Background(), NewMemorySource(), groups, "u1", "grp1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u2", "u3"}, o.Members())
	})

	t.Run("empty group falls back to the solitary user", func(t *testing.T) {
		o, err := NewOracle(context.Background(), NewMemorySource(), groups, "u1", "grp2")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, o.Members())
	})

	t.Run("no group uses the solitary user", func(t *testing.T) {
		o, err := NewOracle(context.Background(), NewMemorySource(), groups, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, o.Members())
	})
}
