package tlstream

import (
	"fmt"
	"net"
	"strings"

	"github.com/polisai/secstream/pkg/config"
)

// PlaceholderServerName is presented as SNI when a trust_all host is
// not a valid server name. The value is meaningless: hostname
// verification is disabled under trust_all, but the handshake still
// needs a syntactically valid name on the wire.
const PlaceholderServerName = "placeholder.domain.com"

// ResolveServerName derives the SNI value from the configured host.
// A valid DNS hostname or IP literal is returned as-is regardless of
// policy. An invalid host resolves to PlaceholderServerName under
// trust_all and to a configuration error under every other policy,
// since a connection cannot proceed without a name to present.
func ResolveServerName(host string, policy config.TrustPolicy) (string, error) {
	if err := validateServerName(host); err != nil {
		if policy.EffectiveMode() == config.TrustModeAll {
			return PlaceholderServerName, nil
		}
		return "", NewServerNameError(host, err.Error())
	}
	return host, nil
}

// validateServerName checks that name is an IP literal or a valid DNS
// hostname (RFC 1035 labels, max 253 octets total).
func validateServerName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if ip := net.ParseIP(name); ip != nil {
		return nil
	}

	hostname := strings.TrimSuffix(name, ".")
	if len(hostname) > 253 {
		return fmt.Errorf("server name too long (max 253 characters)")
	}

	parts := strings.Split(hostname, ".")
	for _, part := range parts {
		if len(part) == 0 {
			return fmt.Errorf("empty label in server name")
		}
		if len(part) > 63 {
			return fmt.Errorf("label too long (max 63 characters): %s", part)
		}

		for _, char := range part {
			if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9') || char == '-') {
				return fmt.Errorf("invalid character in server name: %c", char)
			}
		}

		if strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return fmt.Errorf("label cannot start or end with hyphen: %s", part)
		}
	}

	return nil
}
