package rules

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"content-clock-publisher/models"
)

const ellipsis = "..."

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t]{2,}`)
)

// Format repairs content for platform: it trims stray whitespace, keeps only the first
// HashtagLimit hashtags, applies the platform's presentation rules and truncates to MaxLength
// with an ellipsis. Format is idempotent. Unsupported platforms get whitespace cleanup only.
func Format(content string, platform models.Platform) string {
	out := normalize(content)
	r, ok := For(platform)
	if !ok {
		return out
	}

	// Dropping a hashtag can leave a whitespace-only line, which must be empty before blank
	// lines are collapsed.
	out = normalize(limitHashtags(out, r.HashtagLimit))

	switch platform {
	case models.PlatformFacebook, models.PlatformLinkedin, models.PlatformPinterest:
		out = blankLines.ReplaceAllString(out, "\n\n")
	case models.PlatformInstagram:
		out = blankLines.ReplaceAllString(out, "\n\n")
		out = separateHashtagBlock(out)
	case models.PlatformTwitter, models.PlatformThreads, models.PlatformMastodon:
		out = spaceRuns.ReplaceAllString(out, " ")
	}

	out = normalize(out)
	return truncate(out, r.MaxLength)
}

// Hashtags returns the hashtags in s in order of appearance.
func Hashtags(s string) []string {
	spans := hashtagSpans(s)
	tags := make([]string, 0, len(spans))
	for _, sp := range spans {
		tags = append(tags, s[sp.start:sp.end])
	}
	return tags
}

// normalize unifies line endings and strips trailing whitespace from every line and the text.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

type span struct{ start, end int }

func isTagRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// hashtagSpans finds '#' followed by word runes where the '#' does not continue a word.
func hashtagSpans(s string) []span {
	var spans []span
	prev := rune(0)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == '#' && !isTagRune(prev) {
			j := i + size
			last := r
			for j < len(s) {
				r2, sz := utf8.DecodeRuneInString(s[j:])
				if !isTagRune(r2) {
					break
				}
				last = r2
				j += sz
			}
			if j > i+size {
				spans = append(spans, span{i, j})
				prev = last
				i = j
				continue
			}
		}
		prev = r
		i += size
	}
	return spans
}

// limitHashtags drops every hashtag after the first limit, in place, together with the
// whitespace that separated it from the preceding text.
func limitHashtags(s string, limit int) string {
	spans := hashtagSpans(s)
	if len(spans) <= limit {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	cursor := 0
	for _, sp := range spans[limit:] {
		start, end := sp.start, sp.end
		if start < cursor {
			continue
		}
		// "#x#y" goes as one token so the tail cannot turn into a new hashtag.
		for end < len(s) && s[end] == '#' {
			r, size := utf8.DecodeRuneInString(s[end+1:])
			if size == 0 || !isTagRune(r) {
				break
			}
			end++
			for end < len(s) {
				r, size = utf8.DecodeRuneInString(s[end:])
				if !isTagRune(r) {
					break
				}
				end += size
			}
		}

		ws := start
		for ws > cursor && (s[ws-1] == ' ' || s[ws-1] == '\t') {
			ws--
		}
		if ws == 0 || s[ws-1] == '\n' {
			// At the start of a line the following gap goes instead.
			for end < len(s) && (s[end] == ' ' || s[end] == '\t') {
				end++
			}
			ws = start
		}
		b.WriteString(s[cursor:ws])
		cursor = end
	}
	b.WriteString(s[cursor:])
	return b.String()
}

// separateHashtagBlock moves a run of hashtags closing the last line onto its own paragraph.
func separateHashtagBlock(s string) string {
	lineStart := strings.LastIndexByte(s, '\n') + 1
	line := s[lineStart:]

	type field struct{ start, end int }
	var fields []field
	for i := 0; i < len(line); {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		j := i
		for j < len(line) && line[j] != ' ' && line[j] != '\t' {
			j++
		}
		fields = append(fields, field{i, j})
		i = j
	}

	k := len(fields)
	for k > 0 && isPureHashtag(line[fields[k-1].start:fields[k-1].end]) {
		k--
	}
	if k == len(fields) || k == 0 {
		return s
	}

	head := strings.TrimRightFunc(s[:lineStart+fields[k].start], unicode.IsSpace)
	return head + "\n\n" + line[fields[k].start:]
}

func isPureHashtag(tok string) bool {
	if len(tok) < 2 || tok[0] != '#' {
		return false
	}
	for _, r := range tok[1:] {
		if !isTagRune(r) {
			return false
		}
	}
	return true
}

// truncate cuts s to max runes including the ellipsis, backing off rather than splitting a
// hashtag.
func truncate(s string, max int) string {
	if runeLen(s) <= max {
		return s
	}
	limit := max - len(ellipsis)
	if limit < 0 {
		limit = 0
	}
	cut := byteOffset(s, limit)
	for _, sp := range hashtagSpans(s) {
		if sp.start < cut && cut < sp.end {
			cut = sp.start
			break
		}
	}
	return strings.TrimRightFunc(s[:cut], unicode.IsSpace) + ellipsis
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// byteOffset returns the byte index of the n-th rune of s.
func byteOffset(s string, n int) int {
	i := 0
	for pos := range s {
		if i == n {
			return pos
		}
		i++
	}
	return len(s)
}
