package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCountryCode(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  string
	}{
		{
			name:  "colombia with plus",
			phone: "+573112264829",
			want:  "57",
		},
		{
			name:  "usa with spaces",
			phone: "+1 555 123 4567",
			want:  "1",
		},
		{
			name:  "colombia without plus",
			phone: "573112264829",
			want:  "57",
		},
		{
			name:  "ecuador three digit code",
			phone: "+593991234567",
			want:  "593",
		},
		{
			name:  "empty",
			phone: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCountryCode(tt.phone))
		})
	}
}

func TestTimezoneForPhone(t *testing.T) {
	assert.Equal(t, "America/Bogota", TimezoneForPhone("+573112264829"))
	assert.Equal(t, "America/New_York", TimezoneForPhone("+15551234567"))
	assert.Equal(t, "Asia/Tokyo", TimezoneForPhone("+81312345678"))
	assert.Equal(t, "UTC", TimezoneForPhone(""))
	assert.Equal(t, "UTC", TimezoneForPhone("+999000000"))
}

func TestLocalToUTC(t *testing.T) {
	// Colombia has no DST, the offset is a stable UTC-5
	got, err := LocalToUTC("18:00", "America/Bogota")
	require.NoError(t, err)
	assert.Equal(t, "23:00", got)

	got, err = LocalToUTC("22:30", "America/Bogota")
	require.NoError(t, err)
	assert.Equal(t, "03:30", got)
}

func TestLocalToUTCPassthrough(t *testing.T) {
	got, err := LocalToUTC("18:00", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "18:00", got)

	got, err = LocalToUTC("18:00", "")
	require.NoError(t, err)
	assert.Equal(t, "18:00", got)
}

func TestLocalToUTCPadsUnpaddedInput(t *testing.T) {
	got, err := LocalToUTC("9:30", "UTC")
	require.NoError(t, err)
	assert.Equal(t, "09:30", got)

	got, err = LocalToUTC("9:30", "")
	require.NoError(t, err)
	assert.Equal(t, "09:30", got)
}

func TestLocalToUTCPassthroughRejectsGarbage(t *testing.T) {
	_, err := LocalToUTC("25:99", "UTC")
	assert.Error(t, err)
}

func TestLocalToUTCErrors(t *testing.T) {
	_, err := LocalToUTC("25:99", "America/Bogota")
	assert.Error(t, err)

	_, err = LocalToUTC("18:00", "Not/AZone")
	assert.Error(t, err)
}

func TestUTCToLocalRoundTrip(t *testing.T) {
	utc, err := LocalToUTC("18:00", "America/Bogota")
	require.NoError(t, err)

	local, err := UTCToLocal(utc, "America/Bogota")
	require.NoError(t, err)
	assert.Equal(t, "18:00", local)
}
