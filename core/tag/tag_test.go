package tag

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionMock struct {
	Prefix     string        `default:"auth:"`
	RefreshTTL time.Duration `default:"168h"`
	Roles      []string      `default:"USER, ADMIN"`
	Limit      int           `default:"100"`
	Secure     bool          `default:"true"`
	Ratio      float64       `default:"0.25"`
	Labels     map[string]string `default:"env:prod,region:eu"`
	Cookie     struct {
		Name string `default:"refresh_token"`
	}
	Backoff *struct {
		Retries int `default:"3"`
	}
	Weight *int `default:"7"`
	Untouched *struct {
		Retries int `default:"3"`
	} `default:""`
	Workers []struct {
		Concurrency int `default:"5"`
	}
}

func TestApplyDefaults(t *testing.T) {
	m := &sessionMock{Limit: 20}
	m.Workers = make([]struct {
		Concurrency int `default:"5"`
	}, 2)
	m.Workers[1].Concurrency = 9

	require.NoError(t, ApplyDefaults(m))

	assert.Equal(t, "auth:", m.Prefix)
	assert.Equal(t, 168*time.Hour, m.RefreshTTL)
	assert.Equal(t, []string{"USER", "ADMIN"}, m.Roles)
	assert.Equal(t, 20, m.Limit, "existing value must not be overwritten")
	assert.True(t, m.Secure)
	assert.InDelta(t, 0.25, m.Ratio, 1e-9)
	assert.Equal(t, map[string]string{"env": "prod", "region": "eu"}, m.Labels)
	assert.Equal(t, "refresh_token", m.Cookie.Name)
	assert.Nil(t, m.Backoff, "untagged nil struct pointers stay nil")
	require.NotNil(t, m.Weight)
	assert.Equal(t, 7, *m.Weight)
	assert.Equal(t, 5, m.Workers[0].Concurrency)
	assert.Equal(t, 9, m.Workers[1].Concurrency)
}

func TestApplyDefaultsRecursesIntoSetPointers(t *testing.T) {
	m := &sessionMock{}
	m.Backoff = &struct {
		Retries int `default:"3"`
	}{}

	require.NoError(t, ApplyDefaults(m))
	assert.Equal(t, 3, m.Backoff.Retries)
}

func TestApplyDefaultsInvalidTarget(t *testing.T) {
	assert.ErrorIs(t, ApplyDefaults(sessionMock{}), ErrTargetMustBePointer)
	assert.ErrorIs(t, ApplyDefaults((*sessionMock)(nil)), ErrTargetMustBePointer)

	s := "x"
	assert.ErrorIs(t, ApplyDefaults(&s), ErrTargetMustBePointer)
}

func TestApplyDefaultsBadValue(t *testing.T) {
	bad := &struct {
		TTL time.Duration `default:"forever"`
	}{}

	err := ApplyDefaults(bad)
	require.Error(t, err)

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "TTL", fe.Path)
	assert.Equal(t, "forever", fe.Value)
}
