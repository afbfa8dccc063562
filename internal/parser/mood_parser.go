package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/balkashynov/emolyzer/internal/models"
)

var moodAliases = map[string]int{
	"frustrated": models.MoodFrustrated,
	"angry":      models.MoodFrustrated,
	"sad":        models.MoodSad,
	"down":       models.MoodSad,
	"okay":       models.MoodOkay,
	"ok":         models.MoodOkay,
	"meh":        models.MoodOkay,
	"happy":      models.MoodHappy,
	"good":       models.MoodHappy,
	"excited":    models.MoodExcited,
	"great":      models.MoodExcited,
	"😠":          models.MoodFrustrated,
	"😢":          models.MoodSad,
	"😐":          models.MoodOkay,
	"🙂":          models.MoodHappy,
	"🤩":          models.MoodExcited,
}

// ParseMood accepts a 1-5 scale value, a mood name or its emoji and returns the scale value
func ParseMood(input string) (int, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return 0, fmt.Errorf("mood is required")
	}

	if n, err := strconv.Atoi(input); err == nil {
		if models.MoodLabel(n) == "" {
			return 0, fmt.Errorf("mood must be between %d and %d", models.MoodFrustrated, models.MoodExcited)
		}
		return n, nil
	}

	if scale, ok := moodAliases[input]; ok {
		return scale, nil
	}
	return 0, fmt.Errorf("unknown mood %q. Use: frustrated, sad, okay, happy, excited or 1-5", input)
}

// MoodChoices lists the canonical mood names in scale order
func MoodChoices() []string {
	out := make([]string, 0, models.MoodExcited)
	for scale := models.MoodFrustrated; scale <= models.MoodExcited; scale++ {
		out = append(out, fmt.Sprintf("%d %s", scale, models.MoodLabel(scale)))
	}
	return out
}
