package security

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/swordfighters/admin-api/internal/config"
	internalsettings "github.com/swordfighters/admin-api/internal/settings"
)

// Default WebAuthn relying party configuration.
const (
	// webAuthnRPID is the default relying party ID.
	webAuthnRPID = "swordfighters.com"
	// webAuthnRPName is the default relying party display name.
	webAuthnRPName = "Swordfighters Admin"
	// webAuthnOrigin is the default WebAuthn origin.
	webAuthnOrigin = "https://admin.swordfighters.com"
)

// NewWebAuthn builds a WebAuthn configuration from file config and DB-backed overrides.
func NewWebAuthn(cfg config.WebAuthnConfig) (*webauthn.WebAuthn, error) {
	rpName := strings.TrimSpace(cfg.RPName)
	if rpName == "" {
		rpName = webAuthnRPName
	}
	if override := dbConfigString(internalsettings.WebAuthnRPNameKey); override != "" {
		rpName = override
	}

	origins := normalizeConfigStrings(cfg.Origins)
	if override := dbConfigStrings(internalsettings.WebAuthnOriginsKey); len(override) > 0 {
		origins = override
	} else if override := dbConfigString(internalsettings.WebAuthnOriginKey); override != "" {
		origins = []string{override}
	}
	if len(origins) == 0 {
		origins = []string{webAuthnOrigin}
	}

	rpID := strings.TrimSpace(cfg.RPID)
	if override := dbConfigString(internalsettings.WebAuthnRPIDKey); override != "" {
		rpID = override
	}
	if rpID == "" {
		if derived := deriveRPIDFromOrigins(origins); derived != "" {
			rpID = derived
		} else {
			rpID = webAuthnRPID
		}
	}

	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: rpName,
		RPOrigins:     origins,
	})
}

// ChallengeTTL returns the challenge lifetime, honoring DB-backed overrides.
func ChallengeTTL() time.Duration {
	seconds := internalsettings.DefaultChallengeTTLSeconds
	if raw, ok := internalsettings.DBConfigValue(internalsettings.ChallengeTTLSecondsKey); ok {
		if parsed, okParse := parseDBConfigInt(raw); okParse && parsed > 0 {
			seconds = parsed
		}
	}
	return time.Duration(seconds) * time.Second
}

// deriveRPIDFromOrigins extracts an RP ID from the configured origins.
func deriveRPIDFromOrigins(origins []string) string {
	for _, origin := range origins {
		if host := originHost(origin); host != "" {
			return host
		}
	}
	return ""
}

// originHost parses an origin string and returns its hostname.
func originHost(origin string) string {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimSpace(parsed.Hostname())
}

// dbConfigString reads a string from the DB config snapshot.
func dbConfigString(key string) string {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return ""
	}
	return parseDBConfigString(raw)
}

// parseDBConfigString extracts a string value from JSON config payloads.
func parseDBConfigString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		return strings.TrimSpace(s)
	}
	// wrapper allows parsing values wrapped in a { "value": ... } object.
	var wrapper struct {
		Value json.RawMessage `json:"value"`
	}
	if errUnmarshal := json.Unmarshal(raw, &wrapper); errUnmarshal == nil {
		if len(wrapper.Value) > 0 {
			return parseDBConfigString(wrapper.Value)
		}
	}
	return ""
}

// dbConfigStrings reads a string slice from the DB config snapshot.
func dbConfigStrings(key string) []string {
	raw, ok := internalsettings.DBConfigValue(key)
	if !ok {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if errUnmarshal := json.Unmarshal(raw, &values); errUnmarshal == nil {
		return normalizeConfigStrings(values)
	}
	if single := parseDBConfigString(raw); single != "" {
		return []string{single}
	}
	return nil
}

// parseDBConfigInt extracts an integer value from JSON config payloads.
func parseDBConfigInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if errUnmarshal := json.Unmarshal(raw, &n); errUnmarshal == nil {
		return n, true
	}
	var s string
	if errUnmarshal := json.Unmarshal(raw, &s); errUnmarshal == nil {
		if parsed, errParse := strconv.Atoi(strings.TrimSpace(s)); errParse == nil {
			return parsed, true
		}
	}
	return 0, false
}

// normalizeConfigStrings trims and filters empty strings.
func normalizeConfigStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}
