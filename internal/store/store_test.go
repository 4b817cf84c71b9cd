package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMapWriteError(t *testing.T) {
	dup := mongo.WriteException{
		WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
	assert.ErrorIs(t, mapWriteError(dup), ErrAlreadyExists)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapWriteError(other))

	assert.NoError(t, mapWriteError(nil))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com "))
	assert.Equal(t, "a@x.com", NormalizeEmail("a@x.com"))
}
