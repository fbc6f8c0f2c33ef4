package gamestate

import "strconv"

const columnLetters = "BINGO"

// FormatNumber renders a called number the way boards label it. Games laid
// out in B-I-N-G-O columns get a letter prefix (columns of 15 for 75ball and
// pattern games, 10 for 50ball); everything else is the bare number.
func FormatNumber(n int, gameType string) string {
	if n <= 0 {
		return ""
	}

	var columnSize int
	switch gameType {
	case "75ball", "pattern":
		columnSize = 15
	case "50ball":
		columnSize = 10
	default:
		return strconv.Itoa(n)
	}

	column := (n - 1) / columnSize
	if column > len(columnLetters)-1 {
		column = len(columnLetters) - 1
	}
	return string(columnLetters[column]) + "-" + strconv.Itoa(n)
}

var patternNames = map[string]string{
	"row":           "Row",
	"column":        "Column",
	"diagonal":      "Diagonal",
	"four-corners":  "Four Corners",
	"full-house":    "Full House",
	"one-line":      "One Line",
	"two-lines":     "Two Lines",
	"x-pattern":     "X Pattern",
	"frame":         "Frame",
	"postage-stamp": "Postage Stamp",
	"small-diamond": "Small Diamond",
	"full-board":    "Full Board",
}

// PatternName returns the display name of a win pattern, or the raw
// identifier when it is not a known pattern.
func PatternName(pattern string) string {
	if name, ok := patternNames[pattern]; ok {
		return name
	}
	return pattern
}
