package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHashStable(t *testing.T) {
	payload := map[string]any{
		"title":       "Backend Engineer",
		"company":     "Acme",
		"location":    "Berlin",
		"description": "Build services",
	}

	assert.Equal(t, ContentHash(payload), ContentHash(payload))
	assert.Len(t, ContentHash(payload), 64)
}

func TestContentHashIgnoresCaseAndWhitespace(t *testing.T) {
	a := map[string]any{
		"title":       "Backend Engineer",
		"company":     "Acme Corp",
		"location":    "Berlin,  Germany",
		"description": "Build   services",
	}
	b := map[string]any{
		"title":       "  backend ENGINEER ",
		"company":     "acme corp",
		"location":    "berlin, germany",
		"description": "build services",
	}

	assert.Equal(t, ContentHash(a), ContentHash(b))
}

func TestContentHashIgnoresUnrelatedFields(t *testing.T) {
	base := map[string]any{
		"title":       "Backend Engineer",
		"company":     "Acme",
		"location":    "Berlin",
		"description": "Build services",
	}
	withExtra := map[string]any{
		"title":       "Backend Engineer",
		"company":     "Acme",
		"location":    "Berlin",
		"description": "Build services",
		"salary_min":  100000,
		"url":         "https://example.com/jobs/1",
	}

	// ハッシュ対象は title / company / location / description のみ
	assert.Equal(t, ContentHash(base), ContentHash(withExtra))
}

func TestContentHashDiffersOnContent(t *testing.T) {
	a := map[string]any{"title": "Backend Engineer", "company": "Acme"}
	b := map[string]any{"title": "Frontend Engineer", "company": "Acme"}

	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}

func TestContentHashTruncatesDescription(t *testing.T) {
	prefix := strings.Repeat("a", descriptionHashPrefix)

	a := map[string]any{"title": "X", "description": prefix + " tail one"}
	b := map[string]any{"title": "X", "description": prefix + " tail two"}

	// 先頭500文字を超えた差分はハッシュに影響しない
	assert.Equal(t, ContentHash(a), ContentHash(b))
}
