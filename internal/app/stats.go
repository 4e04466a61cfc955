package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// AverageScore is the rounded mean attempt score. It is undefined when the
// user has no attempts and then serialises as "-".
type AverageScore struct {
	Value   int
	Defined bool
}

func NewAverageScore(mean *float64) AverageScore {
	if mean == nil {
		return AverageScore{}
	}
	return AverageScore{Value: int(math.Round(*mean)), Defined: true}
}

func (a AverageScore) String() string {
	if !a.Defined {
		return "-"
	}
	return strconv.Itoa(a.Value)
}

func (a AverageScore) MarshalJSON() ([]byte, error) {
	if !a.Defined {
		return []byte(`"-"`), nil
	}
	return []byte(strconv.Itoa(a.Value)), nil
}

func (a *AverageScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte(`"-"`)) || bytes.Equal(data, []byte("null")) {
		*a = AverageScore{}
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode average score failed: %w", err)
	}
	*a = AverageScore{Value: v, Defined: true}
	return nil
}

// Stats is the per-user dashboard summary.
type Stats struct {
	QuizCount     int64        `json:"quizCount"`
	TotalAttempts int64        `json:"totalAttempts"`
	AverageScore  AverageScore `json:"averageScore"`
	StreakDays    int          `json:"streakDays"`
}

// StreakDays counts consecutive calendar days, ending today, on which at
// least one attempt was recorded. Dates are compared in loc. No attempt today
// means a streak of 0.
func StreakDays(attempts []time.Time, today time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	days := make(map[string]struct{}, len(attempts))
	for _, t := range attempts {
		days[t.In(loc).Format(dateLayout)] = struct{}{}
	}

	y, m, d := today.In(loc).Date()
	// noon keeps AddDate away from DST edges
	day := time.Date(y, m, d, 12, 0, 0, 0, loc)
	streak := 0
	for {
		if _, ok := days[day.Format(dateLayout)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}
