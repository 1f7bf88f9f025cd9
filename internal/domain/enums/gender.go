package enums

import "strings"

type Gender string

const (
	GenderMan       Gender = "Man"
	GenderWoman     Gender = "Woman"
	GenderNonBinary Gender = "Non-binary"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMan, GenderWoman, GenderNonBinary:
		return true
	default:
		return false
	}
}

type LookingFor string

const (
	LookingForWomen    LookingFor = "Women"
	LookingForMen      LookingFor = "Men"
	LookingForEveryone LookingFor = "Everyone"
)

func (l LookingFor) Valid() bool {
	switch l {
	case LookingForWomen, LookingForMen, LookingForEveryone:
		return true
	default:
		return false
	}
}

func ParseGender(raw string) (Gender, bool) {
	value := strings.TrimSpace(raw)
	for _, g := range []Gender{GenderMan, GenderWoman, GenderNonBinary} {
		if strings.EqualFold(value, string(g)) {
			return g, true
		}
	}
	return "", false
}

func ParseLookingFor(raw string) (LookingFor, bool) {
	value := strings.TrimSpace(raw)
	for _, l := range []LookingFor{LookingForWomen, LookingForMen, LookingForEveryone} {
		if strings.EqualFold(value, string(l)) {
			return l, true
		}
	}
	return "", false
}
