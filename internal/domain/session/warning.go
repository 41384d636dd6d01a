package session

// Level grades how close a budget is to exhaustion.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelUrgent   Level = "urgent"
	LevelExpired  Level = "expired"
)

// severity orders levels for worst-of comparisons.
var severity = map[Level]int{
	LevelNormal:   0,
	LevelWarning:  1,
	LevelCritical: 2,
	LevelUrgent:   3,
	LevelExpired:  4,
}

// Severity returns a rank usable for ordering; higher is worse.
func (l Level) Severity() int { return severity[l] }

// Worse returns the more severe of two levels.
func (l Level) Worse(other Level) Level {
	if other.Severity() > l.Severity() {
		return other
	}
	return l
}

// levelForFraction maps a remaining-budget fraction to a tier. Each tier
// owns the lower edge of its band: exactly 25% remaining is already a
// warning, exactly 0% is expired.
func levelForFraction(frac float64) Level {
	switch {
	case frac <= 0:
		return LevelExpired
	case frac <= 0.05:
		return LevelUrgent
	case frac <= 0.10:
		return LevelCritical
	case frac <= 0.25:
		return LevelWarning
	default:
		return LevelNormal
	}
}
