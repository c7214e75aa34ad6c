package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/models"
)

func TestEveryPlatformHasRules(t *testing.T) {
	for _, p := range models.Platforms {
		r, ok := For(p)
		require.True(t, ok, "missing rules for %s", p)
		assert.Greater(t, r.MaxLength, len(ellipsis), p)
		assert.GreaterOrEqual(t, r.HashtagLimit, 1, p)
		assert.GreaterOrEqual(t, r.MaxMediaCount, 1, p)
	}
	assert.False(t, Supported("myspace"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		platform models.Platform
		media    []string
		rules    []Rule
	}{
		{
			name:     "valid facebook text",
			content:  "Spring sale starts today #sale",
			platform: models.PlatformFacebook,
		},
		{
			name:     "unsupported platform",
			content:  "hello",
			platform: "myspace",
			rules:    []Rule{RulePlatform},
		},
		{
			name:     "too long for twitter",
			content:  strings.Repeat("a", 281),
			platform: models.PlatformTwitter,
			rules:    []Rule{RuleLength},
		},
		{
			name:     "too many hashtags for threads",
			content:  "new drop #one #two",
			platform: models.PlatformThreads,
			rules:    []Rule{RuleHashtags},
		},
		{
			name:     "instagram without media",
			content:  "caption",
			platform: models.PlatformInstagram,
			rules:    []Rule{RuleMediaRequired},
		},
		{
			name:     "pinterest with two images and too long",
			content:  strings.Repeat("b", 501),
			platform: models.PlatformPinterest,
			media:    []string{"a.png", "b.png"},
			rules:    []Rule{RuleLength, RuleMediaCount},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.content, tt.platform, tt.media)
			assert.Equal(t, len(tt.rules) == 0, res.Valid)
			require.Len(t, res.Errors, len(tt.rules))
			for i, v := range res.Violations {
				assert.Equal(t, tt.rules[i], v.Rule)
				assert.Equal(t, res.Errors[i], v.Message)
			}
		})
	}
}

func TestBlockingSkipsRepairableRules(t *testing.T) {
	res := Validate(strings.Repeat("#tag ", 40), models.PlatformInstagram, nil)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"instagram requires at least one media attachment"}, res.Blocking())

	res = Validate(strings.Repeat("x", 3000), models.PlatformTwitter, nil)
	assert.False(t, res.Valid)
	assert.Empty(t, res.Blocking())
}

func TestValidResultSerialisesEmptyErrors(t *testing.T) {
	res := Validate("ok", models.PlatformMastodon, nil)
	assert.True(t, res.Valid)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}
