package connectors

import (
	"strings"
	"unicode"

	"content-clock-publisher/models"
)

var positiveWords = map[string]bool{
	"love": true, "great": true, "awesome": true, "amazing": true, "thanks": true, "thank": true,
	"good": true, "nice": true, "excellent": true, "beautiful": true, "best": true, "happy": true,
	"cool": true, "perfect": true, "wonderful": true, "congrats": true, "congratulations": true,
	"helpful": true, "brilliant": true, "fantastic": true, "like": true,
}

var negativeWords = map[string]bool{
	"hate": true, "bad": true, "terrible": true, "awful": true, "worst": true, "broken": true,
	"scam": true, "spam": true, "disappointed": true, "disappointing": true, "angry": true,
	"poor": true, "refund": true, "useless": true, "horrible": true, "wrong": true, "bug": true,
	"issue": true, "problem": true, "slow": true,
}

var negations = map[string]bool{"not": true, "no": true, "never": true, "dont": true, "don't": true, "isn't": true, "isnt": true}

// ClassifySentiment scores text by keyword, flipping a keyword that directly follows a negation.
func ClassifySentiment(text string) models.Sentiment {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	score := 0
	for i, w := range words {
		v := 0
		switch {
		case positiveWords[w]:
			v = 1
		case negativeWords[w]:
			v = -1
		}
		if v != 0 && i > 0 && negations[words[i-1]] {
			v = -v
		}
		score += v
	}
	switch {
	case score > 0:
		return models.SentimentPositive
	case score < 0:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}
