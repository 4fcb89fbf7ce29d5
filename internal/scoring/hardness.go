package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Hardness categories on the Mohs scale
const (
	HardnessVerySoft      = "Very Soft"
	HardnessSoft          = "Soft"
	HardnessMedium1       = "Medium-1"
	HardnessMedium2       = "Medium-2"
	HardnessHard1         = "Hard-1"
	HardnessHard2         = "Hard-2"
	HardnessVeryHard      = "Very Hard"
	HardnessExtremelyHard = "Extremely Hard"
)

var hardnessNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseHardness reads a Mohs value from text such as "7.5" or "6.5-7".
// Ranges are averaged. It returns nil when no number is present.
func ParseHardness(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	matches := hardnessNumberRe.FindAllString(text, 2)
	if len(matches) == 0 {
		return nil
	}

	v, err := strconv.ParseFloat(matches[0], 64)
	if err != nil {
		return nil
	}
	if len(matches) == 2 && strings.ContainsAny(text, "-–") {
		hi, err := strconv.ParseFloat(matches[1], 64)
		if err != nil {
			return nil
		}
		v = (v + hi) / 2
	}
	return &v
}

// HardnessCategory buckets a Mohs value and returns its points.
// Nil and NaN score 0 with an empty category.
func HardnessCategory(h *float64) (string, float64) {
	if h == nil || math.IsNaN(*h) {
		return "", 0
	}

	v := *h
	switch {
	case v < 3:
		return HardnessVerySoft, 0
	case v < 6:
		return HardnessSoft, 5
	case v < 7.0:
		return HardnessMedium1, 10
	case v < 7.5:
		return HardnessMedium2, 25
	case v < 8.0:
		return HardnessHard1, 45
	case v < 8.5:
		return HardnessHard2, 65
	case v < 10:
		return HardnessVeryHard, 85
	default:
		return HardnessExtremelyHard, 100
	}
}
