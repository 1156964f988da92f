package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "legitify/pkg/domain-errors"
)

func TestRunConcurrentTallies(t *testing.T) {
	res := RunConcurrent(5, func(idx int) error {
		switch idx {
		case 0:
			return nil
		case 1:
			return dErrors.New(dErrors.CodeInvalidState, "terminal")
		case 2:
			return dErrors.New(dErrors.CodeConflict, "pending")
		case 3:
			return dErrors.New(dErrors.CodeNotFound, "missing")
		default:
			return errors.New("boom")
		}
	})
	assert.Equal(t, int32(1), res.Successes)
	assert.Equal(t, int32(1), res.InvalidStates)
	assert.Equal(t, int32(1), res.Conflicts)
	assert.Equal(t, int32(1), res.NotFounds)
	assert.Equal(t, int32(1), res.Errors)
	assert.Equal(t, int32(5), res.Total())
}
