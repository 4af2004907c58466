// Package passkey orchestrates WebAuthn registration and authentication
// ceremonies for admin accounts.
package passkey

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/swordfighters/admin-api/internal/challenge"
	"github.com/swordfighters/admin-api/internal/credentials"
	"github.com/swordfighters/admin-api/internal/models"
	"github.com/swordfighters/admin-api/internal/security"
	"github.com/swordfighters/admin-api/internal/session"
	"gorm.io/gorm"
)

// Cosmetic limits for device labels.
const (
	defaultDeviceName = "Security Key"
	maxDeviceNameLen  = 64
)

// Profile is the public view of an admin returned after authentication.
// Challenge state, credential bytes, and counters are never exposed.
type Profile struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// BeginResult carries the options payload a client-side ceremony consumes.
type BeginResult struct {
	Options json.RawMessage
	// Created reports whether Begin-registration created the admin account.
	Created bool
}

// LoginResult is the outcome of a successful authentication ceremony.
type LoginResult struct {
	Profile      Profile
	SessionToken string
}

// Service runs both ceremony state machines over the durable stores.
type Service struct {
	db         *gorm.DB
	challenges *challenge.Store
	registry   *credentials.Registry
	verifier   security.Verifier
	sessions   *session.Manager
	janitor    *challenge.Janitor
}

// NewService constructs a Service.
func NewService(db *gorm.DB, challenges *challenge.Store, registry *credentials.Registry, verifier security.Verifier, sessions *session.Manager, janitor *challenge.Janitor) *Service {
	return &Service{
		db:         db,
		challenges: challenges,
		registry:   registry,
		verifier:   verifier,
		sessions:   sessions,
		janitor:    janitor,
	}
}

// BeginRegistration starts a registration ceremony for the email, creating
// the admin account on first sight.
func (s *Service) BeginRegistration(ctx context.Context, email string) (*BeginResult, error) {
	email, errEmail := normalizeEmail(email)
	if errEmail != nil {
		return nil, errEmail
	}
	s.janitor.SweepAsync()

	admin, created, errLookup := s.lookupOrCreateAdmin(ctx, email)
	if errLookup != nil {
		return nil, errLookup
	}

	options, errBegin := s.verifier.BeginRegistration(ceremonyUserFor(admin))
	if errBegin != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, errBegin)
	}
	if errStore := s.challenges.Begin(ctx, admin.ID, options.Challenge, security.ChallengeTTL()); errStore != nil {
		return nil, errStore
	}

	if created {
		log.WithField("email", email).Info("created admin on first registration")
	}
	return &BeginResult{Options: options.Options, Created: created}, nil
}

// FinishRegistration verifies an attestation response and commits the new
// credential. This is the only path that creates credentials.
func (s *Service) FinishRegistration(ctx context.Context, email string, response []byte, deviceName string) error {
	email, errEmail := normalizeEmail(email)
	if errEmail != nil {
		return errEmail
	}
	if len(response) == 0 {
		return fmt.Errorf("%w: credential response is required", ErrValidation)
	}

	admin, errFind := s.loadAdmin(ctx, email)
	if errFind != nil || !challenge.IsValid(admin, time.Now()) {
		return ErrSession
	}

	verified, errVerify := s.verifier.FinishRegistration(ceremonyUserFor(admin), *admin.CurrentChallenge, response)
	if errVerify != nil {
		// The challenge stays in place; the janitor expires it.
		log.WithError(errVerify).WithField("email", email).Warn("passkey registration failed")
		return fmt.Errorf("%w: %v", ErrVerification, errVerify)
	}
	if strings.TrimSpace(verified.CredentialID) == "" {
		return fmt.Errorf("%w: missing credential id", ErrVerification)
	}

	transports, errMarshal := json.Marshal(verified.Transports)
	if errMarshal != nil {
		transports = []byte("[]")
	}
	cred := &models.WebAuthnCredential{
		AdminID:      admin.ID,
		CredentialID: verified.CredentialID,
		PublicKey:    verified.PublicKey,
		Counter:      verified.Counter,
		DeviceName:   sanitizeDeviceName(deviceName),
		Transports:   transports,
	}
	if errCreate := s.registry.Create(ctx, cred); errCreate != nil {
		if errors.Is(errCreate, credentials.ErrConflict) {
			return ErrConflict
		}
		return errCreate
	}

	return s.challenges.Consume(ctx, admin.ID)
}

// BeginLogin starts an authentication ceremony for the email.
func (s *Service) BeginLogin(ctx context.Context, email string) (*BeginResult, error) {
	email, errEmail := normalizeEmail(email)
	if errEmail != nil {
		return nil, errEmail
	}
	s.janitor.SweepAsync()

	admin, errFind := s.loadAdmin(ctx, email)
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errFind
	}
	if !admin.Active {
		return nil, ErrInactiveAccount
	}
	if len(credentials.Valid(admin.Credentials)) == 0 {
		return nil, ErrNoCredentials
	}

	options, errBegin := s.verifier.BeginLogin(ceremonyUserFor(admin))
	if errBegin != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerification, errBegin)
	}
	if errStore := s.challenges.Begin(ctx, admin.ID, options.Challenge, security.ChallengeTTL()); errStore != nil {
		return nil, errStore
	}
	return &BeginResult{Options: options.Options}, nil
}

// FinishLogin verifies an assertion response, advances the credential
// counter, and establishes a session.
func (s *Service) FinishLogin(ctx context.Context, email string, response []byte) (*LoginResult, error) {
	email, errEmail := normalizeEmail(email)
	if errEmail != nil {
		return nil, errEmail
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("%w: credential response is required", ErrValidation)
	}

	admin, errFind := s.loadAdmin(ctx, email)
	if errFind != nil || !challenge.IsValid(admin, time.Now()) {
		return nil, ErrSession
	}

	claimedID, errClaim := claimedCredentialID(response)
	if errClaim != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, errClaim)
	}
	cred, errResolve := s.registry.FindForAdmin(ctx, admin.ID, claimedID)
	if errResolve != nil {
		if errors.Is(errResolve, credentials.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, errResolve
	}

	result, errVerify := s.verifier.FinishLogin(ceremonyUserFor(admin), *admin.CurrentChallenge, response)
	if errVerify != nil {
		// Neither the challenge nor the counter is touched on failure.
		log.WithError(errVerify).WithField("email", email).Warn("passkey login failed")
		return nil, fmt.Errorf("%w: %v", ErrVerification, errVerify)
	}

	// Clone detection: once an authenticator has reported a nonzero counter,
	// any non-increasing value means the key material may have been copied.
	if result.CloneWarning || (cred.Counter > 0 && result.NewCounter <= cred.Counter) {
		log.WithField("email", email).WithField("credential_id", cred.CredentialID).
			Warn("passkey counter did not increase, possible cloned authenticator")
		return nil, fmt.Errorf("%w: signature counter did not increase", ErrVerification)
	}

	if errBump := s.registry.BumpCounter(ctx, cred.ID, result.NewCounter, time.Now()); errBump != nil {
		if errors.Is(errBump, credentials.ErrCounterRegression) {
			return nil, fmt.Errorf("%w: signature counter did not increase", ErrVerification)
		}
		return nil, errBump
	}

	now := time.Now().UTC()
	if errUpdate := s.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", admin.ID).
		Updates(map[string]any{"last_login_at": now, "updated_at": now}).Error; errUpdate != nil {
		return nil, errUpdate
	}
	if errConsume := s.challenges.Consume(ctx, admin.ID); errConsume != nil {
		return nil, errConsume
	}

	token, errEstablish := s.sessions.Establish(ctx, admin.ID)
	if errEstablish != nil {
		return nil, errEstablish
	}
	return &LoginResult{
		Profile:      profileFor(admin),
		SessionToken: token,
	}, nil
}

// ListCredentials returns the admin's registered credentials.
func (s *Service) ListCredentials(ctx context.Context, adminID uint64) ([]models.WebAuthnCredential, error) {
	return s.registry.List(ctx, adminID)
}

// DeleteCredential removes a credential owned by the admin, refusing to
// remove the last one.
func (s *Service) DeleteCredential(ctx context.Context, adminID, id uint64) error {
	errDelete := s.registry.Delete(ctx, adminID, id)
	switch {
	case errors.Is(errDelete, credentials.ErrLastCredential):
		return ErrLastCredential
	case errors.Is(errDelete, credentials.ErrNotFound):
		return ErrCredentialNotFound
	default:
		return errDelete
	}
}

// lookupOrCreateAdmin finds the admin by email or creates one on first
// registration. The created flag makes the new-vs-existing branch explicit.
func (s *Service) lookupOrCreateAdmin(ctx context.Context, email string) (*models.Admin, bool, error) {
	admin, errFind := s.loadAdmin(ctx, email)
	if errFind == nil {
		return admin, false, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, false, errFind
	}

	created := &models.Admin{
		Email:  email,
		Name:   displayNameFromEmail(email),
		Role:   "admin",
		Active: true,
	}
	if errCreate := s.db.WithContext(ctx).Create(created).Error; errCreate != nil {
		// A concurrent Begin may have created the row; fall back to lookup.
		if admin, errRetry := s.loadAdmin(ctx, email); errRetry == nil {
			return admin, false, nil
		}
		return nil, false, errCreate
	}
	return created, true, nil
}

// loadAdmin fetches the admin with credentials preloaded.
func (s *Service) loadAdmin(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if errFind := s.db.WithContext(ctx).
		Preload("Credentials").
		Where("email = ?", email).
		First(&admin).Error; errFind != nil {
		return nil, errFind
	}
	return &admin, nil
}

// ceremonyUserFor adapts an admin row to the verifier's user shape.
func ceremonyUserFor(admin *models.Admin) security.CeremonyUser {
	user := security.CeremonyUser{
		Handle:      userHandle(admin.ID),
		Email:       admin.Email,
		DisplayName: admin.Name,
	}
	for _, cred := range credentials.Valid(admin.Credentials) {
		rawID, errDecode := base64.RawURLEncoding.DecodeString(cred.CredentialID)
		if errDecode != nil {
			continue
		}
		var transports []string
		_ = json.Unmarshal(cred.Transports, &transports)
		user.Credentials = append(user.Credentials, security.StoredCredential{
			ID:         rawID,
			PublicKey:  cred.PublicKey,
			Counter:    cred.Counter,
			Transports: transports,
		})
	}
	return user
}

// userHandle encodes the admin ID as an opaque WebAuthn user handle.
func userHandle(adminID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, adminID)
	return buf
}

// profileFor builds the public profile view.
func profileFor(admin *models.Admin) Profile {
	return Profile{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
		Role:  admin.Role,
	}
}

// normalizeEmail trims and lowercases the login email.
func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	return normalized, nil
}

// displayNameFromEmail derives a default display name from the local part.
func displayNameFromEmail(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

// sanitizeDeviceName trims and caps the user-supplied key label.
func sanitizeDeviceName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultDeviceName
	}
	runes := []rune(trimmed)
	if len(runes) > maxDeviceNameLen {
		trimmed = string(runes[:maxDeviceNameLen])
	}
	return trimmed
}

// claimedCredentialID peeks the credential ID from an assertion response so
// the credential can be resolved before full verification.
func claimedCredentialID(response []byte) (string, error) {
	var peek struct {
		ID string `json:"id"`
	}
	if errUnmarshal := json.Unmarshal(response, &peek); errUnmarshal != nil {
		return "", errUnmarshal
	}
	if strings.TrimSpace(peek.ID) == "" {
		return "", errors.New("missing credential id")
	}
	return peek.ID, nil
}
