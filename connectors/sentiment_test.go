package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"content-clock-publisher/models"
)

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		text string
		want models.Sentiment
	}{
		{"Love this, great work!", models.SentimentPositive},
		{"This is the worst update, everything is broken", models.SentimentNegative},
		{"What time does the store open?", models.SentimentNeutral},
		{"Not good at all", models.SentimentNegative},
		{"Great idea but the app is slow and buggy and has a problem", models.SentimentNegative},
		{"", models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySentiment(tt.text))
		})
	}
}
