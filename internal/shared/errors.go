package shared

import (
	"errors"
	"net/http"
)

// CodedError is a business error with a stable numeric code that is safe to show to clients.
type CodedError struct {
	Code    int
	Message string
	Status  int
}

func (e *CodedError) Error() string {
	return e.Message
}

func newCoded(code int, status int, message string) *CodedError {
	return &CodedError{Code: code, Message: message, Status: status}
}

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")

	// ErrAccountExists is returned when registering a taken username.
	ErrAccountExists = newCoded(1001, http.StatusConflict, "account already exists")
	// ErrInvalidCredentials indicates login failure. It never says which check failed.
	ErrInvalidCredentials = newCoded(1003, http.StatusBadRequest, "invalid username or password")
	// ErrPasswordMismatch is returned when the current password does not match on change.
	ErrPasswordMismatch = newCoded(1004, http.StatusBadRequest, "old password is incorrect")
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = newCoded(1017, http.StatusNotFound, "account not found")
	// ErrRootAccount is returned when attempting to delete the root account.
	ErrRootAccount = newCoded(1018, http.StatusBadRequest, "the root account cannot be deleted")

	// ErrUnauthorized indicates a missing or unverifiable token on a protected route.
	ErrUnauthorized = newCoded(1100, http.StatusUnauthorized, "not logged in")
	// ErrInvalidLogin indicates the token was revoked or the session was invalidated.
	ErrInvalidLogin = newCoded(1101, http.StatusUnauthorized, "login is no longer valid, please log in again")
	// ErrNoPermission indicates an authenticated account lacks a required permission.
	ErrNoPermission = newCoded(1102, http.StatusForbidden, "no permission to access this resource")
	// ErrAccountLoggedInElsewhere indicates a newer login superseded this token.
	ErrAccountLoggedInElsewhere = newCoded(1105, http.StatusUnauthorized, "your account has logged in elsewhere")

	// ErrRootRoleImmutable is returned for writes that would remove the root role.
	ErrRootRoleImmutable = newCoded(1201, http.StatusBadRequest, "the root role cannot be modified or deleted")
	// ErrRoleInUse is returned when deleting a role that is still assigned.
	ErrRoleInUse = newCoded(1202, http.StatusBadRequest, "role is still assigned to accounts")
	// ErrRoleNotFound indicates the role does not exist.
	ErrRoleNotFound = newCoded(1203, http.StatusNotFound, "role not found")
	// ErrRoleExists is returned when a role value is already taken.
	ErrRoleExists = newCoded(1204, http.StatusConflict, "role value already exists")

	// ErrPermissionRequiresParent is returned when a permission node has no parent.
	ErrPermissionRequiresParent = newCoded(1301, http.StatusBadRequest, "a permission must belong to a parent menu")
	// ErrParentMenuNotFound is returned when the referenced parent does not exist.
	ErrParentMenuNotFound = newCoded(1302, http.StatusBadRequest, "parent menu not found")
	// ErrIllegalMenuParent is returned when a menu is placed under another menu.
	ErrIllegalMenuParent = newCoded(1303, http.StatusBadRequest, "a menu can only be placed under a group")
	// ErrMenuNotFound indicates the menu node does not exist.
	ErrMenuNotFound = newCoded(1304, http.StatusNotFound, "menu not found")

	// ErrServiceUnavailable is returned when a backing store cannot be reached.
	ErrServiceUnavailable = newCoded(503, http.StatusServiceUnavailable, "service temporarily unavailable")
)

// AsCoded extracts a CodedError from err.
func AsCoded(err error) (*CodedError, bool) {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}
