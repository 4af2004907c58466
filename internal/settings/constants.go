package settings

// DB config keys and defaults for settings.
const (
	// WebAuthnRPIDKey overrides the relying party ID.
	WebAuthnRPIDKey = "WEB_AUTHN_RPID"
	// WebAuthnRPNameKey overrides the relying party display name.
	WebAuthnRPNameKey = "WEB_AUTHN_RP_NAME"
	// WebAuthnOriginsKey overrides the allowed WebAuthn origins.
	WebAuthnOriginsKey = "WEB_AUTHN_ORIGINS"
	// WebAuthnOriginKey overrides a single WebAuthn origin.
	WebAuthnOriginKey = "WEB_AUTHN_ORIGIN"
	// ChallengeTTLSecondsKey controls the WebAuthn challenge lifetime in seconds.
	ChallengeTTLSecondsKey = "WEB_AUTHN_CHALLENGE_TTL_SECONDS"
	// ChallengeSweepIntervalSecondsKey controls the janitor sweep interval in seconds.
	ChallengeSweepIntervalSecondsKey = "WEB_AUTHN_CHALLENGE_SWEEP_INTERVAL_SECONDS"
	// DefaultChallengeTTLSeconds is the fallback challenge lifetime (seconds).
	DefaultChallengeTTLSeconds = 300
	// DefaultChallengeSweepIntervalSeconds is the fallback sweep interval (seconds).
	DefaultChallengeSweepIntervalSeconds = 60
)
