package topic_test

import (
	"testing"

	"wordspark-server/internal/topic"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := topic.NewResolver()

	tests := []struct {
		input   string
		wantTag string
	}{
		{"space", "space"},
		{"I want to hear about ROCKETS and planets!", "space"},
		{"tell me about dogs", "animals"},
		{"sharks please", "ocean"},
		{"soccer", "sports"},
		{"volcanoes!", "nature"},
		{"robots", "science"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			res := r.Resolve(tc.input)
			assert.Equal(t, tc.wantTag, res.Tag)
			assert.NotEmpty(t, res.Theme)
		})
	}

	t.Run("free topic passes through", func(t *testing.T) {
		res := r.Resolve("  medieval castles  ")
		assert.Equal(t, "medieval castles", res.Tag)
		assert.Equal(t, "a fun adventure", res.Theme)
	})
}

func TestIsSameTopicRequest(t *testing.T) {
	r := topic.NewResolver()

	tests := []struct {
		name         string
		text         string
		currentTopic string
		want         bool
	}{
		{"explicit same topic phrase", "same topic", "sports", true},
		{"repeating the topic", "sports", "sports", true},
		{"different topic", "animals", "sports", false},
		{"continuation phrase more", "MORE!", "space", false},
		{"continuation phrase exact", "more", "space", true},
		{"keep going embedded", "yes keep going please", "ocean", true},
		{"again exact", "again", "animals", true},
		{"against is not again", "against", "animals", false},
		{"keyword resolves to same tag", "tell me about whales", "ocean", true},
		{"no current topic", "same topic", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.IsSameTopicRequest(tc.text, tc.currentTopic))
		})
	}
}
