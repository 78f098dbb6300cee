package engine

// =============================================================================
// AGE BRACKET - Fixed ten-bracket classification
// =============================================================================

// AgeBracket is one of the ten fixed age bands used as a report dimension.
type AgeBracket string

const (
	Bracket00to18 AgeBracket = "00-18"
	Bracket19to23 AgeBracket = "19-23"
	Bracket24to28 AgeBracket = "24-28"
	Bracket29to33 AgeBracket = "29-33"
	Bracket34to38 AgeBracket = "34-38"
	Bracket39to43 AgeBracket = "39-43"
	Bracket44to48 AgeBracket = "44-48"
	Bracket49to53 AgeBracket = "49-53"
	Bracket54to58 AgeBracket = "54-58"
	Bracket59plus AgeBracket = "59+"
)

// AgeBrackets lists all brackets in ascending order.
var AgeBrackets = []AgeBracket{
	Bracket00to18, Bracket19to23, Bracket24to28, Bracket29to33, Bracket34to38,
	Bracket39to43, Bracket44to48, Bracket49to53, Bracket54to58, Bracket59plus,
}

// BracketForAge maps an age to its bracket. Total function: nil (unknown)
// and anything at or below 18 land in 00-18, anything at or above 59 in 59+.
func BracketForAge(age *int) AgeBracket {
	if age == nil || *age <= 18 {
		return Bracket00to18
	}
	switch a := *age; {
	case a <= 23:
		return Bracket19to23
	case a <= 28:
		return Bracket24to28
	case a <= 33:
		return Bracket29to33
	case a <= 38:
		return Bracket34to38
	case a <= 43:
		return Bracket39to43
	case a <= 48:
		return Bracket44to48
	case a <= 53:
		return Bracket49to53
	case a <= 58:
		return Bracket54to58
	default:
		return Bracket59plus
	}
}
