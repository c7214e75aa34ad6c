// Package rules holds the per-platform content limits and the validation and formatting that
// run before anything is published.
package rules

import (
	"fmt"

	"content-clock-publisher/models"
)

// MediaType is an attachment kind a platform accepts.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Placement says where a call to action reads best on a platform.
type Placement string

const (
	PlacementStart  Placement = "start"
	PlacementEnd    Placement = "end"
	PlacementInline Placement = "inline"
)

// PlatformRules are the static limits of one platform.
type PlatformRules struct {
	MaxLength             int         `json:"max_length"`
	HashtagLimit          int         `json:"hashtag_limit"`
	MediaRequired         bool        `json:"media_required"`
	MediaTypes            []MediaType `json:"media_types"`
	MaxMediaCount         int         `json:"max_media_count"`
	CallToActionPlacement Placement   `json:"call_to_action_placement"`
}

var table = map[models.Platform]PlatformRules{
	models.PlatformFacebook: {
		MaxLength: 63206, HashtagLimit: 30, MaxMediaCount: 10,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementEnd,
	},
	models.PlatformInstagram: {
		MaxLength: 2200, HashtagLimit: 30, MediaRequired: true, MaxMediaCount: 10,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementEnd,
	},
	models.PlatformLinkedin: {
		MaxLength: 3000, HashtagLimit: 5, MaxMediaCount: 9,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementEnd,
	},
	models.PlatformTwitter: {
		MaxLength: 280, HashtagLimit: 2, MaxMediaCount: 4,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementInline,
	},
	models.PlatformThreads: {
		MaxLength: 500, HashtagLimit: 1, MaxMediaCount: 10,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementInline,
	},
	models.PlatformMastodon: {
		MaxLength: 500, HashtagLimit: 10, MaxMediaCount: 4,
		MediaTypes: []MediaType{MediaImage, MediaVideo}, CallToActionPlacement: PlacementEnd,
	},
	models.PlatformPinterest: {
		MaxLength: 500, HashtagLimit: 20, MediaRequired: true, MaxMediaCount: 1,
		MediaTypes: []MediaType{MediaImage}, CallToActionPlacement: PlacementStart,
	},
}

// For returns the rules of platform.
func For(platform models.Platform) (PlatformRules, bool) {
	r, ok := table[platform]
	return r, ok
}

// Supported reports whether platform has rules (and therefore a connector).
func Supported(platform models.Platform) bool {
	_, ok := table[platform]
	return ok
}

// Rule names one check performed by Validate.
type Rule string

const (
	RulePlatform      Rule = "platform"
	RuleLength        Rule = "length"
	RuleHashtags      Rule = "hashtags"
	RuleMediaRequired Rule = "media_required"
	RuleMediaCount    Rule = "media_count"
)

// Repairable reports whether Format fixes violations of r on its own.
func (r Rule) Repairable() bool {
	return r == RuleLength || r == RuleHashtags
}

// Violation is one failed check.
type Violation struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

// Result is the outcome of Validate.
type Result struct {
	Valid      bool        `json:"valid"`
	Errors     []string    `json:"errors"`
	Violations []Violation `json:"violations"`
}

// Blocking returns the messages of violations Format cannot repair.
func (r Result) Blocking() []string {
	var out []string
	for _, v := range r.Violations {
		if !v.Rule.Repairable() {
			out = append(out, v.Message)
		}
	}
	return out
}

// Validate checks content and media against the platform limits, reporting every violated rule.
func Validate(content string, platform models.Platform, media []string) Result {
	res := Result{Errors: []string{}, Violations: []Violation{}}
	add := func(rule Rule, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		res.Errors = append(res.Errors, msg)
		res.Violations = append(res.Violations, Violation{Rule: rule, Message: msg})
	}

	r, ok := For(platform)
	if !ok {
		add(RulePlatform, "unsupported platform: %q", string(platform))
		return res
	}

	if n := runeLen(content); n > r.MaxLength {
		add(RuleLength, "content is %d characters, %s allows %d", n, platform, r.MaxLength)
	}
	if n := len(hashtagSpans(content)); n > r.HashtagLimit {
		add(RuleHashtags, "content has %d hashtags, %s allows %d", n, platform, r.HashtagLimit)
	}
	if r.MediaRequired && len(media) == 0 {
		add(RuleMediaRequired, "%s requires at least one media attachment", platform)
	}
	if len(media) > r.MaxMediaCount {
		add(RuleMediaCount, "%d media attachments, %s allows %d", len(media), platform, r.MaxMediaCount)
	}

	res.Valid = len(res.Violations) == 0
	return res
}
