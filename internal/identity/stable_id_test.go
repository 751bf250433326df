package identity

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^[a-z0-9-]{16}$`)

func TestGenerateDeterministic(t *testing.T) {
	first := Generate("my-app", "/Users/dev/my-app")
	second := Generate("my-app", "/Users/dev/my-app")

	assert.Equal(t, first, second)
	assert.Len(t, first, IDLength)
	assert.Regexp(t, idPattern, first)
	assert.Equal(t, "myapp-", first[:6])
}

func TestGenerateUnique(t *testing.T) {
	seen := make(map[string]string, 10000)
	for i := 0; i < 10000; i++ {
		name := fmt.Sprintf("app%d", i)
		path := fmt.Sprintf("/home/dev/projects/%s", name)
		id := Generate(name, path)

		prev, dup := seen[id]
		require.Falsef(t, dup, "collision between %q and %q: %s", prev, name, id)
		seen[id] = name
	}
}

func TestGenerateSeparatorDisambiguates(t *testing.T) {
	assert.NotEqual(t, Generate("ab", "c"), Generate("a", "bc"))
}

func TestGenerateEmptyName(t *testing.T) {
	id := Generate("", "/tmp/project")

	assert.Len(t, id, IDLength)
	assert.NotContains(t, id, "-")
	assert.Equal(t, id, Generate("", "/tmp/project"))
}

func TestGeneratePrefixSanitized(t *testing.T) {
	id := Generate("@Scope/My_Service!", "/srv/x")
	assert.Equal(t, "scopem-", id[:7])

	id = Generate("日本語", "/srv/x")
	assert.Regexp(t, idPattern, id)
	assert.NotContains(t, id, "-")
}

func TestFormatPadsBetweenPrefixAndHash(t *testing.T) {
	assert.Equal(t, "app-000000000005", format("app", 5))
	assert.NotEqual(t, format("app", 5), format("app", 5*36))
	assert.Equal(t, "000000000000000z", format("", 35))
	assert.Equal(t, "myapp1-000zik0zk", format("myapp1", -2147483648))
}

func TestHashMatchesSignedWraparound(t *testing.T) {
	assert.Equal(t, int32(0), hash(""))
	assert.Equal(t, int32(97), hash("a"))
	assert.Equal(t, int32(97*31+98), hash("ab"))

	// Characters outside the BMP hash as two surrogate code units.
	assert.Equal(t, int32(0xD83D*31+0xDE00), hash("\U0001F600"))
}

func TestGenerateUnnormalizedUnicodeDiffers(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	assert.NotEqual(t, Generate(composed, "/p"), Generate(decomposed, "/p"))
}
