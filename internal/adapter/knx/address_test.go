package knx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndividualAddress(t *testing.T) {

	assert := assert.New(t)

	ia, err := ParseIndividualAddress("1.2.250")
	require.NoError(t, err)
	assert.Equal(IndividualAddress{Area: 1, Line: 2, Device: 250}, ia)
	assert.Equal("1.2.250", ia.String())
	assert.Equal(uint16(0x12FA), ia.ToUint16())

	for _, s := range []string{"", "1.2", "16.0.1", "0.16.1", "0.0.256", "a.b.c", "1/2/3"} {
		_, err := ParseIndividualAddress(s)
		assert.ErrorIs(err, ErrInvalidIndividualAddress, s)
	}
}

func TestParseGroupAddress(t *testing.T) {

	tests := []struct {
		in    string
		raw   uint16
		level GroupAddressLevel
	}{
		{"1/2/3", 0x0A03, GroupAddressLong},
		{"31/7/255", 0xFFFF, GroupAddressLong},
		{"0/0/0", 0, GroupAddressLong},
		{"1/515", 0x0A03, GroupAddressShort},
		{"2563", 0x0A03, GroupAddressFree},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ga, err := ParseGroupAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, ga.Raw)
			assert.Equal(t, tt.level, ga.Level)
			assert.Equal(t, tt.in, ga.String())
		})
	}
}

func TestParseGroupAddressInvalid(t *testing.T) {
	for _, s := range []string{"", "32/0/0", "1/8/0", "1/2/256", "1/2048", "65536", "1/2/3/4", "a/b/c", "-1"} {
		_, err := ParseGroupAddress(s)
		assert.ErrorIs(t, err, ErrInvalidGroupAddress, s)
	}
}
