package auth

import "errors"

var (
	// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrInvalidCredentials is returned when the directory rejects the bind of the user,
	// the user is unknown or the login is ambiguous.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDirectoryUnavailable is returned when the directory can not be reached or
	// answers with anything but a result.
	ErrDirectoryUnavailable = errors.New("directory unavailable")

	// ErrAccessDenied is returned when the user authenticated but is not allowed to log in
	// because of ldap.user_group or ldap.exclude_group.
	ErrAccessDenied = errors.New("access denied")

	// ErrPersistence is returned when the document store fails to read or write a profile
	// or group document. Authentication fails hard in that case.
	ErrPersistence = errors.New("persistence failure")

	// ErrInvalidUID is returned when nothing is left of a directory uid after cleaning.
	ErrInvalidUID = errors.New("uid is empty after cleaning")

	// ErrNoFreeUID is returned when every suffixed candidate of a uid is taken.
	ErrNoFreeUID = errors.New("no free uid left")

	// ErrUserNotFound is returned when a user cannot be found in the store or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured UID attribute or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")
)
