package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/georgepadayatti/pdfcos/sign/signers"
)

const sampleConfig = `
default-key-set: main
key-sets:
  main:
    type: pemder
    pemder:
      key-file: /etc/signing/key.pem
      cert-file: /etc/signing/cert.pem
      key-passphrase: secret
  backup:
    type: pkcs12
    pkcs12:
      pfx-file: /etc/signing/backup.pfx
      pfx-passphrase: secret
profiles:
  approval:
    subfilter: ETSI.CAdES.detached
    name: Release Bot
    location: Build Server
    reason: Release approval
    bytes-reserved: 8192
output:
  version: "1.7"
  incremental: true
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	if cfg.DefaultKeySet != "main" {
		t.Errorf("DefaultKeySet = %q, want %q", cfg.DefaultKeySet, "main")
	}
	if len(cfg.KeySets) != 2 {
		t.Fatalf("len(KeySets) = %d, want 2", len(cfg.KeySets))
	}

	main := cfg.KeySets["main"]
	if main.Type != "pemder" {
		t.Errorf("main key set type = %q, want pemder", main.Type)
	}
	if main.PemDer == nil || main.PemDer.KeyFile != "/etc/signing/key.pem" {
		t.Errorf("main pemder section = %+v", main.PemDer)
	}
	if got := main.PemDer.GetPassphraseBytes(); string(got) != "secret" {
		t.Errorf("GetPassphraseBytes() = %q", got)
	}

	backup := cfg.KeySets["backup"]
	if backup.Type != "pkcs12" || backup.PKCS12 == nil || backup.PKCS12.PFXFile != "/etc/signing/backup.pfx" {
		t.Errorf("backup key set = %+v", backup)
	}

	if cfg.Output == nil || cfg.Output.Version != "1.7" || !cfg.Output.Incremental {
		t.Errorf("Output = %+v", cfg.Output)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"unknown key set type",
			"key-sets:\n  a:\n    type: hsm\n",
			"unknown key set type",
		},
		{
			"missing pemder section",
			"key-sets:\n  a:\n    type: pemder\n",
			"required section is missing",
		},
		{
			"missing key file",
			"key-sets:\n  a:\n    type: pemder\n    pemder:\n      cert-file: c.pem\n",
			"required field is missing",
		},
		{
			"missing pfx file",
			"key-sets:\n  a:\n    type: pkcs12\n    pkcs12:\n      pfx-passphrase: x\n",
			"required field is missing",
		},
		{
			"bad default key set",
			"default-key-set: nope\nkey-sets:\n  a:\n    type: pemder\n    pemder:\n      key-file: k\n      cert-file: c\n",
			"unknown key set 'nope'",
		},
		{
			"malformed yaml",
			"key-sets: [not a map",
			"failed to parse config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil {
				t.Fatal("ParseConfig() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseConfig() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestKeySetLookup(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	ks, err := cfg.KeySet("")
	if err != nil {
		t.Fatalf("KeySet(\"\") error = %v", err)
	}
	if ks != cfg.KeySets["main"] {
		t.Error("empty name did not resolve to the default key set")
	}

	if _, err := cfg.KeySet("backup"); err != nil {
		t.Errorf("KeySet(backup) error = %v", err)
	}
	if _, err := cfg.KeySet("missing"); !errors.Is(err, ErrUnknownKeySet) {
		t.Errorf("KeySet(missing) error = %v, want ErrUnknownKeySet", err)
	}

	empty := &SigningConfig{}
	if _, err := empty.KeySet(""); err == nil {
		t.Error("KeySet(\"\") on empty config error = nil, want error")
	}
}

func TestProfileLookup(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}

	p, err := cfg.Profile("approval")
	if err != nil {
		t.Fatalf("Profile(approval) error = %v", err)
	}
	if p.Name != "Release Bot" {
		t.Errorf("profile Name = %q", p.Name)
	}

	if p, err := cfg.Profile(""); err != nil || p != nil {
		t.Errorf("Profile(\"\") = %v, %v; want nil, nil", p, err)
	}
	if _, err := cfg.Profile("missing"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Profile(missing) error = %v, want ErrUnknownProfile", err)
	}
}

func TestProfileOptions(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	profile := &SignatureProfileConfig{
		SubFilter:     "ETSI.CAdES.detached",
		Name:          "Release Bot",
		Reason:        "Release approval",
		BytesReserved: 8192,
	}
	opts, err := profile.Options(now)
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if opts.SubFilter != signers.SubFilterCAdESDetached {
		t.Errorf("SubFilter = %q, want %q", opts.SubFilter, signers.SubFilterCAdESDetached)
	}
	if opts.Name != "Release Bot" || opts.Reason != "Release approval" {
		t.Errorf("options = %+v", opts)
	}
	if opts.BytesReserved != 8192 {
		t.Errorf("BytesReserved = %d, want 8192", opts.BytesReserved)
	}
	if opts.Timestamp == nil || !opts.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", opts.Timestamp, now)
	}
}

func TestProfileOptionsDefaults(t *testing.T) {
	now := time.Now()
	var profile *SignatureProfileConfig

	opts, err := profile.Options(now)
	if err != nil {
		t.Fatalf("Options() on nil profile error = %v", err)
	}
	if opts.SubFilter != signers.SubFilterPKCS7Detached {
		t.Errorf("SubFilter = %q, want default %q", opts.SubFilter, signers.SubFilterPKCS7Detached)
	}
	if opts.BytesReserved != signers.DefaultBytesReserved {
		t.Errorf("BytesReserved = %d, want default %d", opts.BytesReserved, signers.DefaultBytesReserved)
	}
}

func TestProfileOptionsSubFilterCase(t *testing.T) {
	opts, err := (&SignatureProfileConfig{SubFilter: "ADBE.PKCS7.DETACHED"}).Options(time.Now())
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if opts.SubFilter != signers.SubFilterPKCS7Detached {
		t.Errorf("SubFilter = %q, want %q", opts.SubFilter, signers.SubFilterPKCS7Detached)
	}
}

func TestProfileOptionsErrors(t *testing.T) {
	if _, err := (&SignatureProfileConfig{SubFilter: "adbe.x509.rsa_sha1"}).Options(time.Now()); err == nil {
		t.Error("unknown subfilter accepted")
	}
	if _, err := (&SignatureProfileConfig{BytesReserved: -1}).Options(time.Now()); err == nil {
		t.Error("negative bytes-reserved accepted")
	}
}

func TestLoadConfigFromMap(t *testing.T) {
	cfg, err := LoadConfigFromMap(map[string]any{
		"key-sets": map[string]any{
			"main": map[string]any{
				"type": "pemder",
				"pemder": map[string]any{
					"key-file":  "k.pem",
					"cert-file": "c.pem",
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("LoadConfigFromMap() error = %v", err)
	}
	if cfg.KeySets["main"].PemDer.CertFile != "c.pem" {
		t.Errorf("cert-file = %q", cfg.KeySets["main"].PemDer.CertFile)
	}
}

func TestCheckConfigKeys(t *testing.T) {
	expected := []string{"key-file", "cert-file", "key-passphrase"}

	if err := CheckConfigKeys("pemder", expected, []string{"key-file", "cert-file"}); err != nil {
		t.Errorf("CheckConfigKeys() error = %v", err)
	}
	// Underscores normalize to dashes.
	if err := CheckConfigKeys("pemder", expected, []string{"key_file"}); err != nil {
		t.Errorf("CheckConfigKeys() with underscore key error = %v", err)
	}

	err := CheckConfigKeys("pemder", expected, []string{"key-file", "bogus", "extra"})
	if !errors.Is(err, ErrUnexpectedField) {
		t.Fatalf("CheckConfigKeys() error = %v, want ErrUnexpectedField", err)
	}
	if !strings.Contains(err.Error(), "bogus") || !strings.Contains(err.Error(), "extra") {
		t.Errorf("error does not name the unexpected keys: %v", err)
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ConfigError{Field: "pfx-file", Message: "bad", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is() cannot see the cause")
	}
	if got := err.Error(); got != "config error in 'pfx-file': bad" {
		t.Errorf("Error() = %q", got)
	}
	if got := (&ConfigError{Message: "bad"}).Error(); got != "config error: bad" {
		t.Errorf("Error() without field = %q", got)
	}
}
