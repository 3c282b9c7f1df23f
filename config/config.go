// Package config provides YAML configuration for signing credentials and
// output profiles.
package config

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/georgepadayatti/pdfcos/keys"
	"github.com/georgepadayatti/pdfcos/sign/signers"
	"gopkg.in/yaml.v3"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnexpectedField      = errors.New("unexpected field in configuration")
	ErrUnknownKeySet        = errors.New("unknown key set")
	ErrUnknownProfile       = errors.New("unknown signature profile")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// PKCS12SignatureConfig contains configuration for signing using a PKCS#12 file.
type PKCS12SignatureConfig struct {
	// PFXFile is the path to the PKCS#12 file.
	PFXFile string `yaml:"pfx-file" json:"pfx_file"`

	// OtherCertsFiles are paths to other certificate files.
	OtherCertsFiles []string `yaml:"other-certs" json:"other_certs,omitempty"`

	// PFXPassphrase is the PKCS#12 passphrase.
	PFXPassphrase string `yaml:"pfx-passphrase" json:"pfx_passphrase,omitempty"`

	// PromptPassphrase indicates whether to prompt for passphrase.
	PromptPassphrase bool `yaml:"prompt-passphrase" json:"prompt_passphrase"`

	// Certificate is the loaded certificate (after processing).
	Certificate *x509.Certificate `yaml:"-" json:"-"`

	// PrivateKey is the loaded private key (after processing).
	PrivateKey keys.PrivateKey `yaml:"-" json:"-"`

	// OtherCerts contains the loaded certificates (after processing).
	OtherCerts []*x509.Certificate `yaml:"-" json:"-"`
}

// Validate validates the PKCS12 signature configuration.
func (c *PKCS12SignatureConfig) Validate() error {
	if c.PFXFile == "" {
		return NewConfigError("pfx-file", "required field is missing")
	}
	return nil
}

// Load loads the credential from the configured PKCS#12 file.
func (c *PKCS12SignatureConfig) Load() error {
	if err := c.Validate(); err != nil {
		return err
	}

	cred, err := keys.LoadPKCS12(c.PFXFile, c.PFXPassphrase)
	if err != nil {
		return fmt.Errorf("failed to load PKCS#12 credential: %w", err)
	}
	c.Certificate = cred.Certificate
	c.PrivateKey = cred.PrivateKey
	c.OtherCerts = cred.CACerts

	if len(c.OtherCertsFiles) > 0 {
		certs, err := keys.LoadCertsFromPemDerFiles(c.OtherCertsFiles)
		if err != nil {
			return fmt.Errorf("failed to load other certs: %w", err)
		}
		c.OtherCerts = append(c.OtherCerts, certs...)
	}

	return nil
}

// PemDerSignatureConfig contains configuration for signing using PEM/DER files.
type PemDerSignatureConfig struct {
	// KeyFile is the path to the private key file.
	KeyFile string `yaml:"key-file" json:"key_file"`

	// CertFile is the path to the certificate file.
	CertFile string `yaml:"cert-file" json:"cert_file"`

	// OtherCertsFiles are paths to other certificate files.
	OtherCertsFiles []string `yaml:"other-certs" json:"other_certs,omitempty"`

	// KeyPassphrase is the private key passphrase.
	KeyPassphrase string `yaml:"key-passphrase" json:"key_passphrase,omitempty"`

	// PromptPassphrase indicates whether to prompt for passphrase.
	PromptPassphrase bool `yaml:"prompt-passphrase" json:"prompt_passphrase"`

	// Certificate is the loaded certificate (after processing).
	Certificate *x509.Certificate `yaml:"-" json:"-"`

	// PrivateKey is the loaded private key (after processing).
	PrivateKey keys.PrivateKey `yaml:"-" json:"-"`

	// OtherCerts contains the loaded certificates (after processing).
	OtherCerts []*x509.Certificate `yaml:"-" json:"-"`
}

// Validate validates the PEM/DER signature configuration.
func (c *PemDerSignatureConfig) Validate() error {
	if c.KeyFile == "" {
		return NewConfigError("key-file", "required field is missing")
	}
	if c.CertFile == "" {
		return NewConfigError("cert-file", "required field is missing")
	}
	return nil
}

// Load loads the certificate and key from the configured files.
func (c *PemDerSignatureConfig) Load() error {
	if err := c.Validate(); err != nil {
		return err
	}

	cert, key, err := keys.LoadCertAndKeyFromPemDer(
		c.CertFile,
		c.KeyFile,
		c.GetPassphraseBytes(),
	)
	if err != nil {
		return fmt.Errorf("failed to load cert and key: %w", err)
	}
	c.Certificate = cert
	c.PrivateKey = key

	if len(c.OtherCertsFiles) > 0 {
		certs, err := keys.LoadCertsFromPemDerFiles(c.OtherCertsFiles)
		if err != nil {
			return fmt.Errorf("failed to load other certs: %w", err)
		}
		c.OtherCerts = certs
	}

	return nil
}

// GetPassphraseBytes returns the passphrase as bytes.
func (c *PemDerSignatureConfig) GetPassphraseBytes() []byte {
	if c.KeyPassphrase == "" {
		return nil
	}
	return []byte(c.KeyPassphrase)
}

// KeySetConfig contains configuration for a set of signing credentials.
type KeySetConfig struct {
	// Type is the type of key set ("pemder" or "pkcs12").
	Type string `yaml:"type" json:"type"`

	// PemDer contains PEM/DER configuration (if type is "pemder").
	PemDer *PemDerSignatureConfig `yaml:"pemder" json:"pemder,omitempty"`

	// PKCS12 contains PKCS#12 configuration (if type is "pkcs12").
	PKCS12 *PKCS12SignatureConfig `yaml:"pkcs12" json:"pkcs12,omitempty"`
}

// Validate validates the key set configuration.
func (c *KeySetConfig) Validate() error {
	switch c.Type {
	case "pemder":
		if c.PemDer == nil {
			return NewConfigError("pemder", "required section is missing")
		}
		return c.PemDer.Validate()
	case "pkcs12":
		if c.PKCS12 == nil {
			return NewConfigError("pkcs12", "required section is missing")
		}
		return c.PKCS12.Validate()
	default:
		return NewConfigError("type", fmt.Sprintf("unknown key set type '%s'", c.Type))
	}
}

// Load loads the credentials named by the key set.
func (c *KeySetConfig) Load() (*x509.Certificate, keys.PrivateKey, error) {
	switch c.Type {
	case "pemder":
		if c.PemDer == nil {
			return nil, nil, NewConfigError("pemder", "required section is missing")
		}
		if err := c.PemDer.Load(); err != nil {
			return nil, nil, err
		}
		return c.PemDer.Certificate, c.PemDer.PrivateKey, nil
	case "pkcs12":
		if c.PKCS12 == nil {
			return nil, nil, NewConfigError("pkcs12", "required section is missing")
		}
		if err := c.PKCS12.Load(); err != nil {
			return nil, nil, err
		}
		return c.PKCS12.Certificate, c.PKCS12.PrivateKey, nil
	default:
		return nil, nil, NewConfigError("type", fmt.Sprintf("unknown key set type '%s'", c.Type))
	}
}

// SignatureProfileConfig describes how a signature field should be filled in.
type SignatureProfileConfig struct {
	// SubFilter selects the signature encoding ("adbe.pkcs7.detached",
	// "ETSI.CAdES.detached" or "ETSI.RFC3161").
	SubFilter string `yaml:"subfilter" json:"subfilter,omitempty"`

	// Name is the name of the signer.
	Name string `yaml:"name" json:"name,omitempty"`

	// Location is the CPU host name or physical location of signing.
	Location string `yaml:"location" json:"location,omitempty"`

	// Reason is the reason for signing.
	Reason string `yaml:"reason" json:"reason,omitempty"`

	// ContactInfo provides a means to contact the signer.
	ContactInfo string `yaml:"contact-info" json:"contact_info,omitempty"`

	// BytesReserved is the space reserved for the signature, in bytes.
	BytesReserved int `yaml:"bytes-reserved" json:"bytes_reserved,omitempty"`
}

// Options converts the profile to signature options. A nil receiver yields
// the defaults.
func (c *SignatureProfileConfig) Options(now time.Time) (*signers.SignatureOptions, error) {
	opts := signers.DefaultSignatureOptions()
	opts.Timestamp = &now
	if c == nil {
		return opts, nil
	}

	if c.SubFilter != "" {
		switch strings.ToLower(c.SubFilter) {
		case "adbe.pkcs7.detached":
			opts.SubFilter = signers.SubFilterPKCS7Detached
		case "etsi.cades.detached":
			opts.SubFilter = signers.SubFilterCAdESDetached
		case "etsi.rfc3161":
			opts.SubFilter = signers.SubFilterRFC3161
		default:
			return opts, NewConfigError("subfilter",
				fmt.Sprintf("unknown subfilter '%s'", c.SubFilter))
		}
	}
	opts.Name = c.Name
	opts.Location = c.Location
	opts.Reason = c.Reason
	opts.ContactInfo = c.ContactInfo
	if c.BytesReserved != 0 {
		if c.BytesReserved < 0 {
			return opts, NewConfigError("bytes-reserved", "must be positive")
		}
		opts.BytesReserved = c.BytesReserved
	}
	return opts, nil
}

// OutputConfig contains settings for how files are written.
type OutputConfig struct {
	// Version is the header version string, e.g. "1.7".
	Version string `yaml:"version" json:"version,omitempty"`

	// Incremental selects incremental update mode for existing files.
	Incremental bool `yaml:"incremental" json:"incremental"`
}

// SigningConfig represents the top-level signing configuration.
type SigningConfig struct {
	// DefaultKeySet names the key set used when none is given explicitly.
	DefaultKeySet string `yaml:"default-key-set" json:"default_key_set,omitempty"`

	// KeySets contains named signing credential configurations.
	KeySets map[string]*KeySetConfig `yaml:"key-sets" json:"key_sets,omitempty"`

	// Profiles contains named signature profiles.
	Profiles map[string]*SignatureProfileConfig `yaml:"profiles" json:"profiles,omitempty"`

	// Output contains output settings.
	Output *OutputConfig `yaml:"output" json:"output,omitempty"`
}

// KeySet returns the key set with the given name, or the default key set
// when name is empty.
func (c *SigningConfig) KeySet(name string) (*KeySetConfig, error) {
	if name == "" {
		name = c.DefaultKeySet
	}
	if name == "" {
		return nil, NewConfigError("key-sets", "no key set specified and no default configured")
	}
	ks, ok := c.KeySets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeySet, name)
	}
	return ks, nil
}

// Profile returns the profile with the given name. An empty name returns
// nil, which stands for the default profile.
func (c *SigningConfig) Profile(name string) (*SignatureProfileConfig, error) {
	if name == "" {
		return nil, nil
	}
	p, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// Validate validates the signing configuration.
func (c *SigningConfig) Validate() error {
	for name, ks := range c.KeySets {
		if err := ks.Validate(); err != nil {
			return fmt.Errorf("key set %s: %w", name, err)
		}
	}
	if c.DefaultKeySet != "" {
		if _, ok := c.KeySets[c.DefaultKeySet]; !ok {
			return NewConfigError("default-key-set",
				fmt.Sprintf("references unknown key set '%s'", c.DefaultKeySet))
		}
	}
	return nil
}

// LoadConfig loads a configuration from a YAML file.
func LoadConfig(filename string) (*SigningConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses configuration from YAML data.
func ParseConfig(data []byte) (*SigningConfig, error) {
	var config SigningConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigFromMap loads configuration from a map.
func LoadConfigFromMap(data map[string]any) (*SigningConfig, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config map: %w", err)
	}
	return ParseConfig(yamlData)
}

// CheckConfigKeys checks if all provided keys are valid for a given configuration type.
func CheckConfigKeys(configName string, expectedKeys, suppliedKeys []string) error {
	expectedSet := make(map[string]bool)
	for _, k := range expectedKeys {
		expectedSet[normalizeKey(k)] = true
	}

	var unexpected []string
	for _, k := range suppliedKeys {
		if !expectedSet[normalizeKey(k)] {
			unexpected = append(unexpected, k)
		}
	}

	if len(unexpected) > 0 {
		keyWord := "key"
		if len(unexpected) > 1 {
			keyWord = "keys"
		}
		return fmt.Errorf("%w: unexpected %s in configuration for %s: %s",
			ErrUnexpectedField, keyWord, configName, strings.Join(unexpected, ", "))
	}

	return nil
}

// normalizeKey normalizes a configuration key (underscores to dashes).
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
