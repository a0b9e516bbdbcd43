package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Method string `json:"method" validate:"required,oneof=manual bank"`
	Items  []item `json:"items" validate:"required,min=1,dive"`
}

type item struct {
	ID string `json:"id" validate:"required"`
}

func TestMessageUsesJSONNames(t *testing.T) {
	err := New().Struct(sample{Method: "crypto", Items: []item{{}}})
	require.Error(t, err)

	msg := Message(err)
	assert.Contains(t, msg, "method must be one of [manual bank]")
	assert.Contains(t, msg, "items[0].id is required")
}

type priced struct {
	Odds decimal.Decimal `json:"odds" validate:"required,gt=1,lte=1000"`
}

func TestDecimalFieldsValidateAsNumbers(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(priced{Odds: decimal.RequireFromString("2.5")}))

	err := v.Struct(priced{})
	require.Error(t, err)
	assert.Equal(t, "odds is required", Message(err))

	err = v.Struct(priced{Odds: decimal.RequireFromString("184467440737095521.16")})
	require.Error(t, err)
	assert.Equal(t, "odds must satisfy lte=1000", Message(err))

	err = v.Struct(priced{Odds: decimal.RequireFromString("1")})
	require.Error(t, err)
	assert.Equal(t, "odds must satisfy gt=1", Message(err))
}
