package model

import "errors"

// Store-level outcomes shared by every persistence driver. Services translate
// them into their own errors.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicate       = errors.New("duplicate record")
	ErrConditionFailed = errors.New("conditional update matched no rows")
)
