package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestAccessor_Get(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Pair
	}{
		{
			name: "both set",
			env:  map[string]string{EnvAccessKeyID: "AKIAEXAMPLE", EnvSecretAccessKey: "wJalrXUtnFEMI"},
			want: Pair{AccessKey: "AKIAEXAMPLE", SecretKey: "wJalrXUtnFEMI"},
		},
		{
			name: "secret unset",
			env:  map[string]string{EnvAccessKeyID: "AKIA123"},
			want: Pair{AccessKey: "AKIA123", SecretKey: ""},
		},
		{
			name: "access key unset",
			env:  map[string]string{EnvSecretAccessKey: "s3cr3t"},
			want: Pair{AccessKey: "", SecretKey: "s3cr3t"},
		},
		{
			name: "both unset",
			env:  map[string]string{},
			want: Pair{},
		},
		{
			name: "values returned unchanged",
			env:  map[string]string{EnvAccessKeyID: "  spaced  ", EnvSecretAccessKey: "a=b/c+d"},
			want: Pair{AccessKey: "  spaced  ", SecretKey: "a=b/c+d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAccessorWithLookup(mapLookup(tt.env)).Get()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAWSCredentials_ProcessEnvironment(t *testing.T) {
	t.Setenv(EnvAccessKeyID, "AKIA123")
	t.Setenv(EnvSecretAccessKey, "from-env")

	access, secret := GetAWSCredentials()
	assert.Equal(t, "AKIA123", access)
	assert.Equal(t, "from-env", secret)
}

func TestAccessor_Idempotent(t *testing.T) {
	a := NewAccessorWithLookup(mapLookup(map[string]string{EnvAccessKeyID: "AKIA123"}))

	first := a.Get()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, a.Get())
	}
}

func TestAccessor_ConcurrentGet(t *testing.T) {
	a := NewAccessorWithLookup(mapLookup(map[string]string{
		EnvAccessKeyID:     "AKIA123",
		EnvSecretAccessKey: "secret",
	}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := a.Get(); got.AccessKey != "AKIA123" || got.SecretKey != "secret" {
				t.Errorf("unexpected pair %+v", got)
			}
		}()
	}
	wg.Wait()
}

func TestAccessor_Require(t *testing.T) {
	t.Run("both set", func(t *testing.T) {
		a := NewAccessorWithLookup(mapLookup(map[string]string{EnvAccessKeyID: "a", EnvSecretAccessKey: "b"}))
		pair, err := a.Require()
		require.NoError(t, err)
		assert.Equal(t, Pair{AccessKey: "a", SecretKey: "b"}, pair)
	})

	t.Run("secret missing", func(t *testing.T) {
		a := NewAccessorWithLookup(mapLookup(map[string]string{EnvAccessKeyID: "a"}))
		_, err := a.Require()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCredentialsUnavailable))

		var unavailable *UnavailableError
		require.True(t, errors.As(err, &unavailable))
		assert.Equal(t, []string{EnvSecretAccessKey}, unavailable.Missing)
	})

	t.Run("both missing", func(t *testing.T) {
		_, err := NewAccessorWithLookup(mapLookup(nil)).Require()
		var unavailable *UnavailableError
		require.True(t, errors.As(err, &unavailable))
		assert.Equal(t, []string{EnvAccessKeyID, EnvSecretAccessKey}, unavailable.Missing)
		assert.Contains(t, err.Error(), EnvAccessKeyID)
	})

	t.Run("set but empty counts as set", func(t *testing.T) {
		a := NewAccessorWithLookup(mapLookup(map[string]string{EnvAccessKeyID: "", EnvSecretAccessKey: ""}))
		pair, err := a.Require()
		require.NoError(t, err)
		assert.Equal(t, Pair{}, pair)
	})
}

func TestPair_JSON(t *testing.T) {
	data, err := json.Marshal(Pair{AccessKey: "AKIA123", SecretKey: ""})
	require.NoError(t, err)
	assert.JSONEq(t, `["AKIA123", ""]`, string(data))
	assert.Equal(t, [2]string{"AKIA123", ""}, Pair{AccessKey: "AKIA123"}.Array())

	var decoded Pair
	require.NoError(t, json.Unmarshal([]byte(`["x","y"]`), &decoded))
	assert.Equal(t, Pair{AccessKey: "x", SecretKey: "y"}, decoded)

	assert.Error(t, json.Unmarshal([]byte(`["only-one"]`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"accessKey":"x"}`), &decoded))
}

func TestPair_MaskedSecret(t *testing.T) {
	assert.Equal(t, "", Pair{}.MaskedSecret())
	assert.Equal(t, "***", Pair{SecretKey: "abc"}.MaskedSecret())
	assert.Equal(t, "******7890", Pair{SecretKey: "1234567890"}.MaskedSecret())
}

func TestEnvProvider_Retrieve(t *testing.T) {
	t.Run("complete pair", func(t *testing.T) {
		p := NewEnvProvider(NewAccessorWithLookup(mapLookup(map[string]string{
			EnvAccessKeyID:     "AKIA123",
			EnvSecretAccessKey: "secret",
		})))
		creds, err := p.Retrieve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "AKIA123", creds.AccessKeyID)
		assert.Equal(t, "secret", creds.SecretAccessKey)
		assert.Equal(t, EnvProviderSource, creds.Source)
		assert.True(t, creds.CanExpire)
	})

	t.Run("empty value rejected", func(t *testing.T) {
		p := NewEnvProvider(NewAccessorWithLookup(mapLookup(map[string]string{
			EnvAccessKeyID:     "AKIA123",
			EnvSecretAccessKey: "",
		})))
		_, err := p.Retrieve(context.Background())
		assert.ErrorIs(t, err, ErrCredentialsUnavailable)
	})
}

func TestResolve(t *testing.T) {
	env := NewAccessorWithLookup(mapLookup(map[string]string{
		EnvAccessKeyID:     "ENVKEY",
		EnvSecretAccessKey: "envsecret",
	}))

	t.Run("configured pair wins", func(t *testing.T) {
		provider := Resolve(Pair{AccessKey: "CFGKEY", SecretKey: "cfgsecret"}, env)
		creds, err := provider.Retrieve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "CFGKEY", creds.AccessKeyID)
		assert.Equal(t, "cfgsecret", creds.SecretAccessKey)
	})

	t.Run("incomplete config falls back to environment", func(t *testing.T) {
		provider := Resolve(Pair{AccessKey: "CFGKEY"}, env)
		creds, err := provider.Retrieve(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ENVKEY", creds.AccessKeyID)
		_, isCache := provider.(*aws.CredentialsCache)
		assert.True(t, isCache)
	})

	t.Run("describe", func(t *testing.T) {
		assert.Equal(t, "user config", Describe(Pair{AccessKey: "a", SecretKey: "b"}, env))
		assert.Equal(t, "environment", Describe(Pair{}, env))
		assert.Contains(t, Describe(Pair{}, NewAccessorWithLookup(mapLookup(nil))), "not set")
	})
}
