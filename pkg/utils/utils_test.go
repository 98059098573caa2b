package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("S3cretPass")
	require.NoError(t, err)
	require.True(t, CheckPassword("S3cretPass", hash))
	require.False(t, CheckPassword("wrong", hash))
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("Abcdefg1"))
	for _, weak := range []string{"Abc1", "abcdefg1", "ABCDEFG1", "Abcdefgh"} {
		require.ErrorIs(t, ValidatePassword(weak), ErrWeakPassword, weak)
	}
	_, err := HashPassword("short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestParseIntField(t *testing.T) {
	n, err := ParseIntField("ZIP code", " 12345 ")
	require.NoError(t, err)
	require.EqualValues(t, 12345, n)

	_, err = ParseIntField("ZIP code", "")
	require.EqualError(t, err, "ZIP code is required")

	_, err = ParseIntField("ZIP code", "12a")
	require.EqualError(t, err, "ZIP code must be a number")
}

func TestIsDigits(t *testing.T) {
	require.True(t, IsDigits("123456789012", 12))
	require.False(t, IsDigits("12345678901", 12))
	require.False(t, IsDigits("12345678901x", 12))
}

func TestFormatClock(t *testing.T) {
	require.Equal(t, "00:00:00", FormatClock(0))
	require.Equal(t, "01:01:05", FormatClock(time.Hour+time.Minute+5*time.Second))
	require.Equal(t, "26:00:00", FormatClock(26*time.Hour))
	require.Equal(t, "00:00:00", FormatClock(-time.Second))
}
