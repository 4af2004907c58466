package passkey

import "errors"

// Protocol errors. Each maps to a stable machine-readable code at the HTTP
// boundary.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the admin account does not exist.
	ErrNotFound = errors.New("admin not found")
	// ErrInactiveAccount indicates the admin account is deactivated.
	ErrInactiveAccount = errors.New("account is inactive")
	// ErrNoCredentials indicates the admin has no registered security keys.
	// Distinct from ErrNotFound: the account exists, the user should
	// register a key rather than conclude the account is gone.
	ErrNoCredentials = errors.New("no security keys registered")
	// ErrSession indicates no ceremony is in flight or its challenge expired.
	ErrSession = errors.New("invalid ceremony session")
	// ErrVerification indicates the cryptographic check failed.
	ErrVerification = errors.New("verification failed")
	// ErrConflict indicates the credential ID is already registered.
	ErrConflict = errors.New("credential already registered")
	// ErrCredentialNotFound indicates the asserted credential is not
	// registered for this admin.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrLastCredential indicates deletion of the only remaining credential
	// was refused.
	ErrLastCredential = errors.New("cannot delete the last security key")
)
