package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		password string
		rule     Rule
	}{
		{"Ab1", RuleMinLength},
		{"Abcdefg", RuleMinLength},
		{"Abcdefgh", RuleDigit},
		{"ABCD1234", RuleLowercase},
		{"abcd1234", RuleUppercase},
		{"12345678", RuleLowercase},
		{"", RuleMinLength},
		{"Abcd1234" + strings.Repeat("x", 72), RuleMaxLength},
	}

	for _, tc := range cases {
		err := CheckPolicy(tc.password)
		require.Error(t, err, tc.password)
		assert.True(t, errors.Is(err, ErrPolicy))

		var pe *PolicyError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, tc.rule, pe.Rule, tc.password)
		assert.NotEmpty(t, pe.Error())
	}
}

func TestCheckPolicyAccepts(t *testing.T) {
	t.Parallel()

	for _, pw := range []string{"Abcd1234", "Zz9zzzzz", "Ünïcødé9a"} {
		assert.NoError(t, CheckPolicy(pw), pw)
	}
}

func TestCheckPolicyCountsCharactersNotBytes(t *testing.T) {
	t.Parallel()

	// 7 characters, more than 8 bytes.
	err := CheckPolicy("Äbcdé1x")
	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, RuleMinLength, pe.Rule)
}

func TestCheckPolicyMaxLengthCountsBytes(t *testing.T) {
	t.Parallel()

	exact := "Abcd1234" + strings.Repeat("x", MaxBytes-8)
	assert.NoError(t, CheckPolicy(exact))

	// 40 two-byte characters pass the character count but exceed 72 bytes.
	wide := "Ab1" + strings.Repeat("é", 40)
	err := CheckPolicy(wide)
	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, RuleMaxLength, pe.Rule)
}
