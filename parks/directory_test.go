package parks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInText(t *testing.T) {
	dir := DefaultDirectory()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"exact name", "Tell me about Glacier National Park", "glac"},
		{"lowercase", "what wildlife lives in yellowstone?", "yell"},
		{"multi word alias", "Is the Grand Canyon open in winter?", "grca"},
		{"alias inside sentence", "We hiked Bryce Canyon last summer.", "brca"},
		{"shared code kings canyon", "best trails in Kings Canyon", "seki"},
		{"shared code sequoia", "how tall are the trees in Sequoia", "seki"},
		{"no park", "What are the most visited parks?", ""},
		{"partial word only", "the grandest views anywhere", ""},
		{"empty text", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dir.FindInText(tt.text))
		})
	}
}

func TestFindInTextPrefersLongerAlias(t *testing.T) {
	dir := DefaultDirectory()

	// "great smoky mountains" and "great smoky" both resolve to grsm; the
	// longer alias must be tried first so overlapping phrases stay stable.
	assert.Equal(t, "grsm", dir.FindInText("camping in the Great Smoky Mountains"))
	assert.Equal(t, "grsm", dir.FindInText("camping in the great smoky area"))
}

func TestCodesInText(t *testing.T) {
	dir := DefaultDirectory()

	codes := dir.CodesInText("Both Zion National Park and Bryce Canyon are in Utah.")
	require.Len(t, codes, 2)
	assert.Equal(t, []string{"brca", "zion"}, codes)

	// Two aliases for the same park count once.
	codes = dir.CodesInText("Sequoia and Kings Canyon share an entrance fee.")
	assert.Equal(t, []string{"seki"}, codes)

	assert.Empty(t, dir.CodesInText("no parks mentioned here"))
}

func TestNameFor(t *testing.T) {
	dir := DefaultDirectory()

	assert.Equal(t, "Glacier National Park", dir.NameFor("glac"))
	// Unknown codes fall back to the uppercased code for display.
	assert.Equal(t, "XYZA", dir.NameFor("xyza"))
}

func TestList(t *testing.T) {
	dir := DefaultDirectory()

	list := dir.List()
	require.NotEmpty(t, list)
	assert.True(t, dir.Contains(list[0].Code))
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code, "list must be sorted by code")
	}
}
