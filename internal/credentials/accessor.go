package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variables read by the accessor.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
)

// ErrCredentialsUnavailable is returned by Require when either variable is unset.
var ErrCredentialsUnavailable = errors.New("credentials unavailable")

// UnavailableError names the variables that were missing.
// It unwraps to ErrCredentialsUnavailable.
type UnavailableError struct {
	Missing []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s not set", ErrCredentialsUnavailable, strings.Join(e.Missing, ", "))
}

func (e *UnavailableError) Unwrap() error {
	return ErrCredentialsUnavailable
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Accessor reads the credential pair from the process environment.
// The zero value is not usable; use NewAccessor.
type Accessor struct {
	lookup LookupFunc
}

// NewAccessor returns an accessor backed by os.LookupEnv.
func NewAccessor() *Accessor {
	return &Accessor{lookup: os.LookupEnv}
}

// NewAccessorWithLookup returns an accessor that reads through lookup instead
// of the real environment.
func NewAccessorWithLookup(lookup LookupFunc) *Accessor {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Accessor{lookup: lookup}
}

// Get returns the current pair. An unset variable yields "" for its half.
// Get never fails and has no side effects.
func (a *Accessor) Get() Pair {
	return Pair{
		AccessKey: a.value(EnvAccessKeyID),
		SecretKey: a.value(EnvSecretAccessKey),
	}
}

// Require is the strict form of Get: it fails with an *UnavailableError when
// either variable is unset. A variable that is set to "" counts as set.
func (a *Accessor) Require() (Pair, error) {
	var missing []string
	access, ok := a.lookup(EnvAccessKeyID)
	if !ok {
		missing = append(missing, EnvAccessKeyID)
	}
	secret, ok := a.lookup(EnvSecretAccessKey)
	if !ok {
		missing = append(missing, EnvSecretAccessKey)
	}
	if len(missing) > 0 {
		return Pair{}, &UnavailableError{Missing: missing}
	}
	return Pair{AccessKey: access, SecretKey: secret}, nil
}

func (a *Accessor) value(key string) string {
	if v, ok := a.lookup(key); ok {
		return v
	}
	return ""
}

var defaultAccessor = NewAccessor()

// GetAWSCredentials returns (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY), with
// "" standing in for an unset variable.
func GetAWSCredentials() (string, string) {
	return defaultAccessor.Get().Values()
}
