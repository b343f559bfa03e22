package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceMetersZeroForSamePoint(t *testing.T) {
	d := DistanceMeters(21.2500, 81.6300, 21.2500, 81.6300)
	require.Zero(t, d)
}

func TestDistanceMetersSymmetric(t *testing.T) {
	d1 := DistanceMeters(21.2500, 81.6300, 21.2510, 81.6312)
	d2 := DistanceMeters(21.2510, 81.6312, 21.2500, 81.6300)
	require.InDelta(t, d1, d2, 1e-9)
	require.Greater(t, d1, 0.0)
}

func TestDistanceMetersKnownSeparation(t *testing.T) {
	// Roughly 0.001 deg of latitude is ~111m at this latitude.
	d := DistanceMeters(21.2500, 81.6300, 21.2510, 81.6300)
	require.InDelta(t, 111.0, d, 1.5)
}

func TestSubnetPrefix(t *testing.T) {
	require.Equal(t, "192.168.43", SubnetPrefix("192.168.43.17"))
	require.Equal(t, "10.0.0", SubnetPrefix("10.0.0.1"))
	require.Equal(t, "", SubnetPrefix("not-an-ip"))
	require.Equal(t, "", SubnetPrefix("10.0.0"))
}

func TestSameSubnet(t *testing.T) {
	require.True(t, SameSubnet("192.168.43.17", "192.168.43.1"))
	require.False(t, SameSubnet("192.168.44.17", "192.168.43.1"))
	require.False(t, SameSubnet("garbage", "192.168.43.1"))
	require.False(t, SameSubnet("garbage", "also-garbage"))
}

func TestValidateCoordinates(t *testing.T) {
	require.True(t, ValidateCoordinates(0, 0))
	require.True(t, ValidateCoordinates(-90, 180))
	require.False(t, ValidateCoordinates(90.01, 0))
	require.False(t, ValidateCoordinates(0, -180.5))
}

func TestRoundMeters(t *testing.T) {
	require.Equal(t, 12.0, RoundMeters(12.4))
	require.Equal(t, 13.0, RoundMeters(12.5))
}
