package assessment

// Level is a four-tier stress label derived from a percentage of max score.
type Level string

const (
	LevelExcellent  Level = "excellent"
	LevelGood       Level = "good"
	LevelModerate   Level = "moderate"
	LevelConcerning Level = "concerning"

	// LevelNoData is reported for regions that have no aggregate yet.
	LevelNoData Level = "no_data"
)

// ReferenceMaxScore is the fixed scale region averages are graded against,
// regardless of the max_score individual submissions were taken on.
const ReferenceMaxScore = 400.0

var levelColors = map[Level]string{
	LevelExcellent:  "#10b981",
	LevelGood:       "#fbbf24",
	LevelModerate:   "#f97316",
	LevelConcerning: "#ef4444",
}

// Color returns the map fill for l, or "" for unknown levels.
func (l Level) Color() string { return levelColors[l] }

// Valid reports whether l is one of the four graded levels.
func (l Level) Valid() bool {
	_, ok := levelColors[l]
	return ok
}

// Classify maps a percentage (0..100, not clamped) onto a level.
func Classify(percentage float64) Level {
	switch {
	case percentage <= 30:
		return LevelExcellent
	case percentage <= 50:
		return LevelGood
	case percentage <= 75:
		return LevelModerate
	default:
		return LevelConcerning
	}
}

// StressLevel grades a region average against ReferenceMaxScore.
func StressLevel(averageScore float64) (Level, string) {
	l := Classify(averageScore / ReferenceMaxScore * 100)
	return l, l.Color()
}
