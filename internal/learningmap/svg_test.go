package learningmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmap/trailmap/internal/graphstore"
	"github.com/trailmap/trailmap/internal/svgdoc"
)

func TestSkeleton(t *testing.T) {
	t.Run("parses and carries the expected structure", func(t *testing.T) {
		markup := Skeleton(graphstore.Default())

		doc, err := svgdoc.Load(markup)
		require.NoError(t, err)

		for _, id := range []string{"placesGroup", "pathsGroup", "checkmark", "fogFilter", "fogPattern"} {
			assert.True(t, doc.Has(id), "missing %s", id)
		}
	})

	t.Run("reflects the record's style settings", func(t *testing.T) {
		s := graphstore.Default()
		s.PlaceColor = "#445566"
		s.Width = 1024
		s.Height = 768

		markup := Skeleton(s)
		assert.Contains(t, markup, "#445566")
		assert.Contains(t, markup, `width="1024"`)
		assert.Contains(t, markup, `viewBox="0 0 1024 768"`)
	})

	t.Run("style rules cover all state classes", func(t *testing.T) {
		markup := Skeleton(graphstore.Default())
		for _, class := range []string{".reachable", ".visited", ".waygone"} {
			assert.True(t, strings.Contains(markup, class), "missing rule for %s", class)
		}
	})
}

func TestRecordVersion(t *testing.T) {
	assert.Equal(t, 3, recordVersion([]byte(`{"version":3}`)))
	assert.Equal(t, 0, recordVersion([]byte(`{}`)))
	assert.Equal(t, 0, recordVersion([]byte(`{broken`)))
}
