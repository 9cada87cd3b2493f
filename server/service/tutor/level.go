package tutor

import (
	"strings"

	apperrors "github.com/hrygo/rod/server/internal/errors"
)

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
)

// Levels lists every accepted level in ascending order.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1}

// ParseLevel accepts a level name in any case.
func ParseLevel(s string) (Level, error) {
	candidate := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, level := range Levels {
		if candidate == level {
			return level, nil
		}
	}
	return "", apperrors.InvalidArgument("level must be one of A1, A2, B1, B2, C1").WithContext("level", s)
}

// levelOrDefault maps stored values to a Level, treating unknown values as A1.
func levelOrDefault(s string) Level {
	level, err := ParseLevel(s)
	if err != nil {
		return LevelA1
	}
	return level
}

// Tier groups levels that share a persona and a critic policy.
type Tier int

const (
	TierBeginner Tier = iota
	TierIntermediate
	TierAdvanced
)

func (t Tier) String() string {
	switch t {
	case TierBeginner:
		return "beginner"
	case TierIntermediate:
		return "intermediate"
	default:
		return "advanced"
	}
}

// Tier returns the persona tier of l.
func (l Level) Tier() Tier {
	switch l {
	case LevelA1:
		return TierBeginner
	case LevelA2:
		return TierIntermediate
	default:
		return TierAdvanced
	}
}
