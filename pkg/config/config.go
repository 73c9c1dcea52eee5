// Package config defines the connection configuration consumed by the
// secure stream layer: the target host, the trust policy that decides
// which server certificate chains are acceptable, and engine tuning.
package config

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field       string
	Value       interface{}
	Reason      string
	Suggestions []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error in field '%s': %s", e.Field, e.Reason)
}

func (e *ConfigError) WithSuggestion(suggestion string) *ConfigError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

func NewConfigMissingError(field string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Reason: fmt.Sprintf("required field '%s' is missing", field),
	}
}

func NewConfigValidationError(field string, value interface{}, reason string) *ConfigError {
	return &ConfigError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// TrustMode discriminates the trust policy variants. Exactly one
// variant is active per connection attempt.
type TrustMode string

const (
	// TrustModeDefault trusts the platform-native root store.
	TrustModeDefault TrustMode = "default"
	// TrustModeAll disables certificate and hostname verification.
	// Every use is logged at warning level.
	TrustModeAll TrustMode = "trust_all"
	// TrustModeCAFile trusts a single CA certificate read from a file
	// (.pem, .crt or .der).
	TrustModeCAFile TrustMode = "ca_file"
	// TrustModeCABundle trusts the CA certificates contained in an
	// in-memory PEM bundle.
	TrustModeCABundle TrustMode = "ca_bundle"
)

// TrustPolicy selects which certificate chains the client accepts.
// Construct with one of TrustDefault, TrustAll, TrustCAFile or
// TrustCABundle; the zero value behaves like TrustDefault.
type TrustPolicy struct {
	Mode     TrustMode `yaml:"mode" json:"mode"`
	CAFile   string    `yaml:"ca_file,omitempty" json:"ca_file,omitempty"`
	CABundle string    `yaml:"ca_bundle,omitempty" json:"ca_bundle,omitempty"`
}

// TrustDefault returns a policy that trusts the platform-native roots.
func TrustDefault() TrustPolicy {
	return TrustPolicy{Mode: TrustModeDefault}
}

// TrustAll returns a policy that accepts any server certificate.
// Intended for development and debugging only.
func TrustAll() TrustPolicy {
	return TrustPolicy{Mode: TrustModeAll}
}

// TrustCAFile returns a policy that trusts the single CA certificate
// stored at path.
func TrustCAFile(path string) TrustPolicy {
	return TrustPolicy{Mode: TrustModeCAFile, CAFile: path}
}

// TrustCABundle returns a policy that trusts the CA certificates in the
// given PEM bundle.
func TrustCABundle(pemBundle []byte) TrustPolicy {
	return TrustPolicy{Mode: TrustModeCABundle, CABundle: string(pemBundle)}
}

// Bundle returns the PEM bundle bytes for a ca_bundle policy.
func (p TrustPolicy) Bundle() []byte {
	return []byte(p.CABundle)
}

// EffectiveMode normalises an unset mode to TrustModeDefault.
func (p TrustPolicy) EffectiveMode() TrustMode {
	if p.Mode == "" {
		return TrustModeDefault
	}
	return p.Mode
}

// Validate checks that exactly one policy variant is active and that
// the variant's payload is present.
func (p TrustPolicy) Validate() error {
	switch p.EffectiveMode() {
	case TrustModeDefault, TrustModeAll:
		if strings.TrimSpace(p.CAFile) != "" {
			return NewConfigValidationError("trust.ca_file", p.CAFile,
				fmt.Sprintf("ca_file must not be set when mode is %q", p.EffectiveMode())).
				WithSuggestion("Use mode 'ca_file' to trust a CA certificate file")
		}
		if strings.TrimSpace(p.CABundle) != "" {
			return NewConfigValidationError("trust.ca_bundle", "<pem data>",
				fmt.Sprintf("ca_bundle must not be set when mode is %q", p.EffectiveMode())).
				WithSuggestion("Use mode 'ca_bundle' to trust an inline PEM bundle")
		}
	case TrustModeCAFile:
		if strings.TrimSpace(p.CAFile) == "" {
			return NewConfigMissingError("trust.ca_file").
				WithSuggestion("Provide the path to a CA certificate (.pem, .crt or .der)")
		}
		if strings.TrimSpace(p.CABundle) != "" {
			return NewConfigValidationError("trust.ca_bundle", "<pem data>",
				"ca_bundle and ca_file are mutually exclusive").
				WithSuggestion("Choose either mode 'ca_file' or mode 'ca_bundle'")
		}
	case TrustModeCABundle:
		if strings.TrimSpace(p.CAFile) != "" {
			return NewConfigValidationError("trust.ca_file", p.CAFile,
				"ca_file and ca_bundle are mutually exclusive").
				WithSuggestion("Choose either mode 'ca_file' or mode 'ca_bundle'")
		}
	default:
		return NewConfigValidationError("trust.mode", string(p.Mode), "unknown trust mode").
			WithSuggestion("Valid modes: default, trust_all, ca_file, ca_bundle")
	}
	return nil
}

// TLSVersion represents supported TLS protocol versions.
type TLSVersion string

const (
	TLSVersion12 TLSVersion = "1.2"
	TLSVersion13 TLSVersion = "1.3"
)

// ParseTLSVersion converts a string to a TLSVersion with validation.
// An empty string selects TLS 1.2, the minimum this layer negotiates.
func ParseTLSVersion(version string) (TLSVersion, error) {
	if version == "" {
		return TLSVersion12, nil
	}

	normalized := strings.TrimSpace(version)
	switch TLSVersion(normalized) {
	case TLSVersion12, TLSVersion13:
		return TLSVersion(normalized), nil
	default:
		return "", fmt.Errorf("unsupported TLS version %q", version)
	}
}

// Engine names accepted by Config.Engine.
const (
	EngineStd  = "std"
	EngineUTLS = "utls"
)

// DefaultHandshakeTimeout bounds the handshake when the caller's
// context carries no deadline.
const DefaultHandshakeTimeout = 10 * time.Second

// Config is the caller-owned connection configuration. It is created
// once before any connection attempt and read-only to the secure
// stream layer; trust material derived from it is rebuilt per attempt.
type Config struct {
	Host             string        `yaml:"host" json:"host"`
	Trust            TrustPolicy   `yaml:"trust" json:"trust"`
	Engine           string        `yaml:"engine,omitempty" json:"engine,omitempty"`
	MinVersion       string        `yaml:"min_version,omitempty" json:"min_version,omitempty"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty" json:"handshake_timeout,omitempty"`
}

// Validate performs comprehensive validation of the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return NewConfigMissingError("host").
			WithSuggestion("Provide the server hostname or IP address to connect to")
	}

	if err := c.Trust.Validate(); err != nil {
		return err
	}

	switch strings.TrimSpace(c.Engine) {
	case "", EngineStd, EngineUTLS:
	default:
		return NewConfigValidationError("engine", c.Engine, "unknown TLS engine").
			WithSuggestion("Valid engines: std, utls").
			WithSuggestion("Leave empty to use the std engine")
	}

	if c.MinVersion != "" {
		if _, err := ParseTLSVersion(c.MinVersion); err != nil {
			return NewConfigValidationError("min_version", c.MinVersion, err.Error()).
				WithSuggestion("Use a valid TLS version: 1.2 or 1.3")
		}
	}

	if c.HandshakeTimeout < 0 {
		return NewConfigValidationError("handshake_timeout", c.HandshakeTimeout,
			"handshake timeout cannot be negative").
			WithSuggestion("Leave empty to use the 10s default")
	}

	return nil
}

// EffectiveEngine normalises an unset engine name to EngineStd.
func (c *Config) EffectiveEngine() string {
	if strings.TrimSpace(c.Engine) == "" {
		return EngineStd
	}
	return strings.TrimSpace(c.Engine)
}

// EffectiveHandshakeTimeout normalises an unset timeout to the default.
func (c *Config) EffectiveHandshakeTimeout() time.Duration {
	if c.HandshakeTimeout == 0 {
		return DefaultHandshakeTimeout
	}
	return c.HandshakeTimeout
}
