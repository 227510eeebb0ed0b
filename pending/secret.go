package pending

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

const redacted = "[secret]"

// Secret is a sensitive input such as the master password. It never prints or
// serializes its value; renderers emit it as a secret parameter named Name.
type Secret struct {
	name  string
	value string
}

// NewSecret wraps a secret value under a configuration key name.
func NewSecret(name, value string) Secret {
	return Secret{name: name, value: value}
}

// Name is the configuration key the secret is read from.
func (s Secret) Name() string { return s.name }

// Reveal returns the plain value. Only providers should call it.
func (s Secret) Reveal() string { return s.value }

// IsZero reports whether the secret was never set.
func (s Secret) IsZero() bool { return s.name == "" && s.value == "" }

// Fingerprint is a stable digest of the value, stored in state instead of the
// value itself so that a changed password shows up as an update.
func (s Secret) Fingerprint() string {
	sum := sha256.Sum256([]byte(s.value))
	return "sha256:" + hex.EncodeToString(sum[:8])
}

func (s Secret) String() string { return redacted }

// GoString keeps %#v from leaking the value.
func (s Secret) GoString() string { return redacted }

// MarshalJSON implements json.Marshaler.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}
