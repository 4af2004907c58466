package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// CeremonyUser carries the identity data a WebAuthn ceremony needs.
type CeremonyUser struct {
	Handle      []byte
	Email       string
	DisplayName string
	Credentials []StoredCredential
}

// StoredCredential is the persisted credential material handed to a ceremony.
type StoredCredential struct {
	ID         []byte
	PublicKey  []byte
	Counter    uint32
	Transports []string
}

// RegistrationOptions is the payload a client-side registration ceremony consumes.
type RegistrationOptions struct {
	Challenge string
	Options   json.RawMessage
}

// LoginOptions is the payload a client-side authentication ceremony consumes.
type LoginOptions struct {
	Challenge string
	Options   json.RawMessage
}

// RegisteredCredential is the verified output of a registration ceremony.
type RegisteredCredential struct {
	CredentialID string
	PublicKey    []byte
	Counter      uint32
	Transports   []string
}

// AssertionResult is the verified output of an authentication ceremony.
type AssertionResult struct {
	CredentialID string
	NewCounter   uint32
	CloneWarning bool
}

// Verifier generates ceremony options and verifies authenticator responses.
//
// It is the only place that touches attestation and assertion cryptography;
// protocol code treats it as a trusted primitive so tests can substitute a
// deterministic fake.
type Verifier interface {
	BeginRegistration(user CeremonyUser) (*RegistrationOptions, error)
	FinishRegistration(user CeremonyUser, challenge string, response []byte) (*RegisteredCredential, error)
	BeginLogin(user CeremonyUser) (*LoginOptions, error)
	FinishLogin(user CeremonyUser, challenge string, response []byte) (*AssertionResult, error)
}

// webAuthnVerifier implements Verifier on top of go-webauthn.
type webAuthnVerifier struct {
	w *webauthn.WebAuthn
}

// NewVerifier wraps a WebAuthn configuration in the Verifier port.
func NewVerifier(w *webauthn.WebAuthn) Verifier {
	return &webAuthnVerifier{w: w}
}

// ceremonyUser adapts a CeremonyUser to the webauthn.User interface.
type ceremonyUser struct {
	user CeremonyUser
}

// WebAuthnID returns the opaque user handle.
func (u ceremonyUser) WebAuthnID() []byte {
	return u.user.Handle
}

// WebAuthnName returns the login email.
func (u ceremonyUser) WebAuthnName() string {
	return u.user.Email
}

// WebAuthnDisplayName returns the display name.
func (u ceremonyUser) WebAuthnDisplayName() string {
	if u.user.DisplayName == "" {
		return u.user.Email
	}
	return u.user.DisplayName
}

// WebAuthnCredentials returns registered credentials.
func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	out := make([]webauthn.Credential, 0, len(u.user.Credentials))
	for _, cred := range u.user.Credentials {
		transports := make([]protocol.AuthenticatorTransport, 0, len(cred.Transports))
		for _, transport := range cred.Transports {
			transports = append(transports, protocol.AuthenticatorTransport(transport))
		}
		out = append(out, webauthn.Credential{
			ID:        cred.ID,
			PublicKey: cred.PublicKey,
			Transport: transports,
			Authenticator: webauthn.Authenticator{
				SignCount: cred.Counter,
			},
		})
	}
	return out
}

// BeginRegistration generates creation options and a fresh challenge.
func (v *webAuthnVerifier) BeginRegistration(user CeremonyUser) (*RegistrationOptions, error) {
	adapter := ceremonyUser{user: user}
	options := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementPreferred),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationPreferred,
		}),
	}
	if creds := adapter.WebAuthnCredentials(); len(creds) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(creds).CredentialDescriptors()))
	}

	creation, session, err := v.w.BeginRegistration(adapter, options...)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	payload, errMarshal := json.Marshal(creation)
	if errMarshal != nil {
		return nil, fmt.Errorf("marshal creation options: %w", errMarshal)
	}
	return &RegistrationOptions{Challenge: session.Challenge, Options: payload}, nil
}

// FinishRegistration verifies an attestation response against the stored challenge.
func (v *webAuthnVerifier) FinishRegistration(user CeremonyUser, challenge string, response []byte) (*RegisteredCredential, error) {
	parsed, errParse := protocol.ParseCredentialCreationResponseBytes(response)
	if errParse != nil {
		return nil, fmt.Errorf("parse attestation response: %w", errParse)
	}

	session := webauthn.SessionData{
		Challenge:        challenge,
		UserID:           user.Handle,
		UserVerification: protocol.VerificationPreferred,
	}
	credential, errCreate := v.w.CreateCredential(ceremonyUser{user: user}, session, parsed)
	if errCreate != nil {
		return nil, errCreate
	}

	transports := make([]string, 0, len(credential.Transport))
	for _, transport := range credential.Transport {
		transports = append(transports, string(transport))
	}
	return &RegisteredCredential{
		CredentialID: base64.RawURLEncoding.EncodeToString(credential.ID),
		PublicKey:    credential.PublicKey,
		Counter:      credential.Authenticator.SignCount,
		Transports:   transports,
	}, nil
}

// BeginLogin generates request options and a fresh challenge.
func (v *webAuthnVerifier) BeginLogin(user CeremonyUser) (*LoginOptions, error) {
	adapter := ceremonyUser{user: user}
	assertion, session, err := v.w.BeginLogin(adapter, webauthn.WithUserVerification(protocol.VerificationPreferred))
	if err != nil {
		return nil, fmt.Errorf("begin login: %w", err)
	}

	payload, errMarshal := json.Marshal(assertion)
	if errMarshal != nil {
		return nil, fmt.Errorf("marshal assertion options: %w", errMarshal)
	}
	return &LoginOptions{Challenge: session.Challenge, Options: payload}, nil
}

// FinishLogin verifies an assertion response against the stored challenge and credential.
func (v *webAuthnVerifier) FinishLogin(user CeremonyUser, challenge string, response []byte) (*AssertionResult, error) {
	parsed, errParse := protocol.ParseCredentialRequestResponseBytes(response)
	if errParse != nil {
		return nil, fmt.Errorf("parse assertion response: %w", errParse)
	}

	allowed := make([][]byte, 0, len(user.Credentials))
	for _, cred := range user.Credentials {
		allowed = append(allowed, cred.ID)
	}
	session := webauthn.SessionData{
		Challenge:            challenge,
		UserID:               user.Handle,
		AllowedCredentialIDs: allowed,
		UserVerification:     protocol.VerificationPreferred,
	}

	credential, errValidate := v.w.ValidateLogin(ceremonyUser{user: user}, session, parsed)
	if errValidate != nil {
		return nil, errValidate
	}

	return &AssertionResult{
		CredentialID: base64.RawURLEncoding.EncodeToString(credential.ID),
		NewCounter:   parsed.Response.AuthenticatorData.Counter,
		CloneWarning: credential.Authenticator.CloneWarning,
	}, nil
}
