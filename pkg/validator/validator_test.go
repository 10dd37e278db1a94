package validator_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("name", "Apollo"),
			validator.MaxLenString("name", "Apollo", 10),
			validator.MinNum("limit", 0, 0),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure in order", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("name", "   "),
			validator.MaxLenString("description", strings.Repeat("x", 11), 10),
			validator.MinNum("offset", -1, 0),
		)
		require.Error(t, err)

		verrs := validator.ExtractValidationErrors(err)
		require.Len(t, verrs, 3)
		assert.Equal(t, []string{"name", "description", "offset"}, verrs.Fields())
		assert.Equal(t, []string{"field is required"}, verrs.Get("name"))
		assert.True(t, verrs.Has("offset"))
		assert.False(t, verrs.Has("limit"))
	})

	t.Run("extracts through wrapping", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("project: %w", validator.Apply(validator.RequiredString("name", "")))
		assert.True(t, validator.IsValidationError(err))
		assert.Len(t, validator.ExtractValidationErrors(err), 1)

		assert.False(t, validator.IsValidationError(errors.New("boom")))
		assert.Nil(t, validator.ExtractValidationErrors(nil))
	})
}

func TestMaxLenStringCountsCharacters(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validator.Apply(validator.MaxLenString("name", "ünïcødé", 7)))
	assert.Error(t, validator.Apply(validator.MaxLenString("name", "ünïcødé!", 7)))
}

func TestDateNotAfter(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	assert.NoError(t, validator.Apply(validator.DateNotAfter("from", from, to)))
	assert.NoError(t, validator.Apply(validator.DateNotAfter("from", from, time.Time{})))
	assert.NoError(t, validator.Apply(validator.DateNotAfter("from", time.Time{}, to)))
	assert.Error(t, validator.Apply(validator.DateNotAfter("from", to, from)))
}

func TestValidationErrorsJSON(t *testing.T) {
	t.Parallel()

	err := validator.Apply(validator.MaxNum("limit", 500, 200))
	b, jerr := json.Marshal(validator.ExtractValidationErrors(err))
	require.NoError(t, jerr)
	assert.JSONEq(t, `[{"field":"limit","message":"must be at most 200"}]`, string(b))
	assert.EqualError(t, err, "validation failed: limit: must be at most 200")
}
