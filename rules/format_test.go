package rules

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/models"
)

func TestFormatTruncatesLongInstagramCaption(t *testing.T) {
	content := strings.Repeat("x", 5000)

	out := Format(content, models.PlatformInstagram)

	require.Equal(t, 2200, utf8.RuneCountInString(out))
	assert.Equal(t, strings.Repeat("x", 2197)+"...", out)
}

func TestFormatCountsRunesNotBytes(t *testing.T) {
	content := strings.Repeat("é", 300)

	out := Format(content, models.PlatformTwitter)

	assert.Equal(t, 280, utf8.RuneCountInString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}

func TestFormatKeepsFirstHashtagsInPlace(t *testing.T) {
	content := "#one Launch #two day #three is here #four"

	out := Format(content, models.PlatformTwitter)

	assert.Equal(t, "#one Launch #two day is here", out)
	assert.Equal(t, []string{"#one", "#two"}, Hashtags(out))
}

func TestFormatDropsHashtagAtLineStart(t *testing.T) {
	out := Format("#keep first line\n#drop second line", models.PlatformThreads)
	assert.Equal(t, "#keep first line\nsecond line", out)
}

func TestFormatDropsChainedHashtag(t *testing.T) {
	out := Format("go. #a. #b#c done", models.PlatformThreads)
	assert.Equal(t, "go. #a. done", out)
	assert.Equal(t, []string{"#a"}, Hashtags(out))
}

func TestHashtagsIgnoreMidWordHashes(t *testing.T) {
	assert.Equal(t, []string{"#golang", "#café_2"}, Hashtags("C# and F# #golang # #café_2 a#b"))
}

func TestFormatCosmetics(t *testing.T) {
	tests := []struct {
		name     string
		platform models.Platform
		in       string
		want     string
	}{
		{"facebook collapses blank lines", models.PlatformFacebook, "a\r\n\r\n\r\n\r\nb  ", "a\n\nb"},
		{"linkedin collapses blank lines", models.PlatformLinkedin, "a\n\n\n\n\nb", "a\n\nb"},
		{"twitter collapses spaces", models.PlatformTwitter, "a   b\t\tc", "a b c"},
		{"mastodon trims lines", models.PlatformMastodon, "  a  \n b \n", "a\n b"},
		{"instagram moves hashtag block", models.PlatformInstagram, "Sunset walk #beach #summer", "Sunset walk\n\n#beach #summer"},
		{"instagram leaves lone hashtag line", models.PlatformInstagram, "Sunset\n#beach #summer", "Sunset\n#beach #summer"},
		{"unknown platform only trims", "myspace", "  hi  ", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in, tt.platform))
		})
	}
}

func TestFormatDoesNotSplitHashtagWhenTruncating(t *testing.T) {
	content := strings.Repeat("a", 270) + " #averyverylonghashtag"

	out := Format(content, models.PlatformTwitter)

	assert.Equal(t, strings.Repeat("a", 270)+"...", out)
	assert.Empty(t, Hashtags(out))
}

var sampleTokens = []string{
	"word", "Hello", "#tag", "#Tag_2", "#ünï", "#x#y", "C#", "#", "##double", "ok.", "#end.",
	" ", "  ", "\t", "\n", "\n\n\n\n", "\r\n", "é", "emoji🙂", strings.Repeat("z", 90),
	"#" + strings.Repeat("h", 40),
}

func randomContent(rng *rand.Rand) string {
	n := rng.Intn(400)
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(sampleTokens[rng.Intn(len(sampleTokens))])
		if rng.Intn(3) > 0 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func TestFormatProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		content := randomContent(rng)
		inputTags := Hashtags(content)
		for _, p := range models.Platforms {
			r, _ := For(p)
			once := Format(content, p)
			twice := Format(once, p)

			require.Equal(t, once, twice, "not idempotent for %s: %q", p, content)
			require.LessOrEqual(t, utf8.RuneCountInString(once), r.MaxLength, "too long for %s", p)

			tags := Hashtags(once)
			require.LessOrEqual(t, len(tags), r.HashtagLimit, "too many hashtags for %s", p)
			require.LessOrEqual(t, len(tags), len(inputTags))
			require.Equal(t, inputTags[:len(tags)], tags, "hashtags not an ordered prefix for %s: %q", p, content)
		}
	}
}

func TestFormatCollapsesLineLeftEmptyByDroppedHashtag(t *testing.T) {
	content := "Big news #a #b #c #d #e\n\n  #extra\n\nRead more"

	once := Format(content, models.PlatformLinkedin)

	assert.Equal(t, "Big news #a #b #c #d #e\n\nRead more", once)
	assert.Equal(t, once, Format(once, models.PlatformLinkedin))
}
