package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pq.Error{Code: pq.ErrorCode(UniqueViolation)}

	assert.True(t, IsUniqueViolation(uniqueErr))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", uniqueErr)))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("insert failed")))
	assert.False(t, IsUniqueViolation(nil))
}
