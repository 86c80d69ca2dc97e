package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDifficulty(t *testing.T) {
	tests := []struct {
		raw  string
		want Difficulty
	}{
		{"easy", DifficultyEasy},
		{"Easy", DifficultyEasy},
		{"medium", DifficultyMedium},
		{"Moderate", DifficultyMedium},
		{"intermediate", DifficultyMedium},
		{"hard", DifficultyHard},
		{"DIFFICULT", DifficultyHard},
		{"advanced", DifficultyHard},
		{"expert", DifficultyExpert},
		{"professional", DifficultyExpert},
		{"", DifficultyEasy},
		{"impossible", DifficultyEasy},
		{"  hard  ", DifficultyHard},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDifficulty(tt.raw))
		})
	}
}

func TestRecipe_Normalize(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	r := Recipe{Difficulty: "Advanced"}
	r.normalize(now)
	assert.Equal(t, DifficultyHard, r.Difficulty)
	assert.Equal(t, now, r.DateGenerated)

	dated := now.Add(-24 * time.Hour)
	r = Recipe{Difficulty: "nonsense", DateGenerated: dated}
	r.normalize(now)
	assert.Equal(t, DifficultyEasy, r.Difficulty)
	assert.Equal(t, dated, r.DateGenerated, "an explicit generation date is preserved")
}
