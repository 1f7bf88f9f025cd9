package rules

import "github.com/ivankudzin/blinddate/internal/domain/enums"

// Accepts reports whether someone looking for lookingFor wants a partner of gender.
func Accepts(lookingFor enums.LookingFor, gender enums.Gender) bool {
	switch lookingFor {
	case enums.LookingForEveryone:
		return gender.Valid()
	case enums.LookingForWomen:
		return gender == enums.GenderWoman
	case enums.LookingForMen:
		return gender == enums.GenderMan
	default:
		return false
	}
}

// Compatible is the mutual check used by the blind-date queue.
func Compatible(aGender enums.Gender, aLookingFor enums.LookingFor, bGender enums.Gender, bLookingFor enums.LookingFor) bool {
	return Accepts(aLookingFor, bGender) && Accepts(bLookingFor, aGender)
}

// WantedGender narrows a candidate scan. ok is false for Everyone.
func WantedGender(lookingFor enums.LookingFor) (enums.Gender, bool) {
	switch lookingFor {
	case enums.LookingForWomen:
		return enums.GenderWoman, true
	case enums.LookingForMen:
		return enums.GenderMan, true
	default:
		return "", false
	}
}

// AcceptingPreferences lists the looking_for values that accept gender.
func AcceptingPreferences(gender enums.Gender) []enums.LookingFor {
	switch gender {
	case enums.GenderWoman:
		return []enums.LookingFor{enums.LookingForWomen, enums.LookingForEveryone}
	case enums.GenderMan:
		return []enums.LookingFor{enums.LookingForMen, enums.LookingForEveryone}
	case enums.GenderNonBinary:
		return []enums.LookingFor{enums.LookingForEveryone}
	default:
		return nil
	}
}
