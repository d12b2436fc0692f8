package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_RoundTrip(t *testing.T) {
	t.Parallel()

	refs := []Ref{
		BatchRef(0),
		BatchRef(42),
		BatchRef(1 << 40),
		SingleRef(0),
		SingleRef(7),
		SingleRef(1 << 40),
	}

	for _, ref := range refs {
		parsed, err := ParseRef(ref.String())
		require.NoError(t, err, ref.String())
		assert.Equal(t, ref, parsed)
	}
}

func TestRef_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "42", BatchRef(42).String())
	assert.Equal(t, "single_7", SingleRef(7).String())
}

func TestParseRef_Malformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"abc",
		"-5",
		"single_",
		"single_abc",
		"single_-5",
		"12.5",
		"single_single_3",
	}

	for _, in := range inputs {
		_, err := ParseRef(in)
		assert.ErrorIs(t, err, ErrBadRef, "input %q", in)
	}
}
