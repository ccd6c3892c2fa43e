package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePipName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Requests", "requests"},
		{"SPECIAL.missing", "special-missing"},
		{"special-missing", "special-missing"},
		{"Foo__Bar", "foo-bar"},
		{"a-_.b", "a-b"},
		{"  zope.interface ", "zope-interface"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePipName(tt.in))
		})
	}
}

func TestUniqueStrings(t *testing.T) {
	assert.Equal(t, []string{"b", "a"}, UniqueStrings([]string{"b", "a", "b"}))
	assert.Empty(t, UniqueStrings(nil))
}
