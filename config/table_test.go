package config

import (
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesStakesAndLeavesOtherDefaults(t *testing.T) {
	cfg, err := Load(TableConfig{Stakes: Stakes{SmallBlind: 5, BigBlind: 10}, BigBlindSeat: 2, SmallBlindSeat: 1})
	require.NoError(t, err)
	require.EqualValues(t, 5, cfg.Stakes.SmallBlind)
	require.EqualValues(t, 10, cfg.Stakes.BigBlind)
	require.Equal(t, Default().NumShufflers, cfg.NumShufflers)
}

func TestValidateRejectsBigBlindBelowSmallBlind(t *testing.T) {
	cfg := Default()
	cfg.Stakes = Stakes{SmallBlind: 10, BigBlind: 5}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeAnte(t *testing.T) {
	cfg := Default()
	cfg.Stakes.Ante = -1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSameSmallAndBigBlindSeat(t *testing.T) {
	cfg := Default()
	cfg.SmallBlindSeat = 3
	cfg.BigBlindSeat = 3
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveNumShufflers(t *testing.T) {
	cfg := Default()
	cfg.NumShufflers = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnsupportedCurve(t *testing.T) {
	cfg := Default()
	cfg.CurveName = "secp256k1"
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	_, err := Load(TableConfig{Stakes: Stakes{SmallBlind: -1, BigBlind: 2}})
	require.Error(t, err)
}

func TestRegisterFlagsBindsDefaults(t *testing.T) {
	cfg := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	f := fs.Lookup("numShufflers")
	require.NotNil(t, f)
	require.Equal(t, "3", f.DefValue)
}
