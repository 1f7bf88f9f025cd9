package enums

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleSupport Role = "SUPPORT"
	RoleUser    Role = "USER"
)
