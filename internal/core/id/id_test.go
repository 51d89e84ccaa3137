package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_Version7(t *testing.T) {
	v := New()
	assert.Equal(t, uuid.Version(7), v.Version())
	assert.NotEqual(t, New(), v)
}

func TestString_Parses(t *testing.T) {
	s := String()
	parsed, err := uuid.Parse(s)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
