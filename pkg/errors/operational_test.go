package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperationalError_NilCause(t *testing.T) {
	assert.Nil(t, NewOperationalError("execute node", "f", "s", "n", nil))
}

func TestOperationalError_MessageAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewOperationalError("http request", "onboarding", "sess-1", "fetch-news", cause)
	require.NotNil(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "http request")
	assert.Contains(t, msg, "flow=onboarding")
	assert.Contains(t, msg, "session=sess-1")
	assert.Contains(t, msg, "node=fetch-news")
	assert.Contains(t, msg, "connection refused")

	assert.True(t, stderrors.Is(err, cause))
}

func TestOperationalError_OmitsEmptyIDs(t *testing.T) {
	err := NewOperationalError("parse flow", "onboarding", "", "", stderrors.New("boom"))
	msg := err.Error()
	assert.NotContains(t, msg, "session=")
	assert.NotContains(t, msg, "node=")
}

func TestOperationalError_Attributes(t *testing.T) {
	err := NewOperationalErrorWithAttrs("http request", "f", "s", "n",
		stderrors.New("boom"), map[string]interface{}{"status": 500})
	require.NotNil(t, err)
	assert.Equal(t, 500, err.Attributes["status"])
}
