package idgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	cases := []struct {
		name, prefix, last, want string
	}{
		{"empty table", PrefixEmployee, "", "EMP001"},
		{"increment", PrefixEmployee, "EMP007", "EMP008"},
		{"carry", PrefixClient, "CL009", "CL010"},
		{"width grows", PrefixEmployee, "EMP999", "EMP1000"},
		{"past width", PrefixEmployee, "EMP1000", "EMP1001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Next(tc.prefix, DefaultWidth, tc.last)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNext_Malformed(t *testing.T) {
	_, err := Next(PrefixEmployee, DefaultWidth, "CL001")
	require.ErrorIs(t, err, ErrMalformedCode)

	_, err = Next(PrefixEmployee, DefaultWidth, "EMPabc")
	require.ErrorIs(t, err, ErrMalformedCode)
}

func TestParse(t *testing.T) {
	n, err := Parse(PrefixClient, "CL042")
	require.NoError(t, err)
	require.Equal(t, 42, n)
}
