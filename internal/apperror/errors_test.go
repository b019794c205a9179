package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyErrorUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("generate: %w", Dependency("cache", cause))

	var dep *DependencyError
	require.True(t, errors.As(err, &dep))
	assert.Equal(t, "cache", dep.Dependency)
	assert.ErrorIs(t, err, cause)
}

func TestValidationErrorMessage(t *testing.T) {
	err := Invalid("currentQuestionIndex", "must be between 0 and %d", 3)
	assert.Equal(t, "invalid currentQuestionIndex: must be between 0 and 3", err.Error())
}

func TestNotFoundErrorMessage(t *testing.T) {
	assert.Equal(t, `question "Q9" not found`, NotFound("question", "Q9").Error())
}
