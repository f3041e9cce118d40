package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCleanRefusesDirtySchema(t *testing.T) {
	assert.NoError(t, checkClean(0, false))
	assert.NoError(t, checkClean(1, false))

	err := checkClean(1, true)
	assert.True(t, errors.Is(err, ErrDirtySchema))
	assert.EqualError(t, err, "database schema is dirty at version 1")
}
