package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"attrconsent/internal/sentinel"
	dErrors "attrconsent/pkg/domain-errors"
)

func TestRunConcurrent_SortsOutcomes(t *testing.T) {
	boom := errors.New("boom")

	result := RunConcurrent(10, func(idx int) error {
		switch idx {
		case 0, 1:
			return dErrors.New(dErrors.CodeStorage, "down")
		case 2:
			return fmt.Errorf("lookup: %w", sentinel.ErrNotFound)
		case 3:
			return dErrors.New(dErrors.CodeIntegrity, "bad signature")
		case 4:
			return boom
		default:
			return nil
		}
	})

	assert.Equal(t, int32(5), result.Successes)
	assert.Equal(t, int32(2), result.Storage)
	assert.Equal(t, int32(1), result.NotFound)
	assert.Equal(t, int32(1), result.Unreadable)
	assert.Equal(t, int32(1), result.Other)
	assert.ErrorIs(t, result.First, boom)
	assert.Equal(t, int32(10), result.Total())
}
