package token

// EmploymentStatus is the closed set of employment states an employee
// account can be in. The status is mutable server-side and is embedded in
// every issued token.
type EmploymentStatus string

const (
	StatusActive     EmploymentStatus = "ACTIVE"
	StatusOnLeave    EmploymentStatus = "ON_LEAVE"
	StatusSuspended  EmploymentStatus = "SUSPENDED"
	StatusResigned   EmploymentStatus = "RESIGNED"
	StatusTerminated EmploymentStatus = "TERMINATED"
)

// Valid reports whether the status is one of the known values.
func (s EmploymentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusOnLeave, StatusSuspended, StatusResigned, StatusTerminated:
		return true
	}
	return false
}

// CanLogin is the single canonical derivation of login permission from
// employment status. Token issuance and boundary gating must both go
// through this function so the two can never drift apart.
func (s EmploymentStatus) CanLogin() bool {
	return s == StatusActive || s == StatusOnLeave
}

// DenialMessage returns the user-facing message shown when access is denied
// because of this status. Employment-status denials are the only errors that
// expose the specific reason to the user.
func (s EmploymentStatus) DenialMessage() string {
	switch s {
	case StatusSuspended:
		return "your account is suspended; please contact HR"
	case StatusResigned:
		return "this account belongs to a resigned employee and is no longer active"
	case StatusTerminated:
		return "this account has been terminated and can no longer be used"
	default:
		return "your account is not permitted to log in"
	}
}
