package config

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/wu-s-john/legit-poker-sub000/betting"
)

// Stakes is the chip-denominated stakes structure for a table.
type Stakes struct {
	SmallBlind betting.Chips `mapstructure:"smallBlind"`
	BigBlind   betting.Chips `mapstructure:"bigBlind"`
	Ante       betting.Chips `mapstructure:"ante"`
}

// TableConfig is the recognized configuration surface for a table: the
// betting-engine surface plus the cryptographic setup surface a hand
// runtime needs to stand up its shuffle committee. Loaded via
// Load/Validate rather than read directly, so a caller always goes
// through the same defaulting and validation path regardless of
// whether values came from flags, environment, or a config file.
type TableConfig struct {
	Stakes            Stakes `mapstructure:"stakes"`
	Button            int    `mapstructure:"button"`
	SmallBlindSeat    int    `mapstructure:"smallBlindSeat"`
	BigBlindSeat      int    `mapstructure:"bigBlindSeat"`
	CheckRaiseAllowed bool   `mapstructure:"checkRaiseAllowed"`
	NumShufflers      int    `mapstructure:"numShufflers"`

	// CurveName selects the outer group C for the shuffle/ElGamal layer.
	// Only "bn254" is currently implemented.
	CurveName string `mapstructure:"curve"`
}

// Default returns a TableConfig with the conventional six-handed,
// no-ante, check-raise-allowed defaults this repo's tests build on.
func Default() TableConfig {
	return TableConfig{
		Stakes:            Stakes{SmallBlind: 1, BigBlind: 2, Ante: 0},
		Button:            0,
		SmallBlindSeat:    1,
		BigBlindSeat:      2,
		CheckRaiseAllowed: true,
		NumShufflers:      3,
		CurveName:         "bn254",
	}
}

// RegisterFlags binds cfg's fields onto fs, following the teacher's
// convention of separating flag registration from parsing: no flag.Parse
// is called here, and no CLI binary in this repo calls RegisterFlags —
// it exists so an embedding application can wire this config into its
// own flag surface the same way the teacher's cmd/ binaries do.
func (cfg *TableConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.Int64Var((*int64)(&cfg.Stakes.SmallBlind), "stakes.smallBlind", int64(cfg.Stakes.SmallBlind), "small blind, in chip units")
	fs.Int64Var((*int64)(&cfg.Stakes.BigBlind), "stakes.bigBlind", int64(cfg.Stakes.BigBlind), "big blind, in chip units")
	fs.Int64Var((*int64)(&cfg.Stakes.Ante), "stakes.ante", int64(cfg.Stakes.Ante), "ante, in chip units (0 disables it)")
	fs.IntVar(&cfg.Button, "button", cfg.Button, "button seat id")
	fs.IntVar(&cfg.SmallBlindSeat, "smallBlindSeat", cfg.SmallBlindSeat, "small blind seat id")
	fs.IntVar(&cfg.BigBlindSeat, "bigBlindSeat", cfg.BigBlindSeat, "big blind seat id")
	fs.BoolVar(&cfg.CheckRaiseAllowed, "checkRaiseAllowed", cfg.CheckRaiseAllowed, "allow a seat that checked to raise later on the same street")
	fs.IntVar(&cfg.NumShufflers, "numShufflers", cfg.NumShufflers, "shuffle committee size; must match the deployed roster")
	fs.StringVar(&cfg.CurveName, "curve", cfg.CurveName, "outer group for the shuffle/ElGamal layer")
}

// Load returns Default() overlaid with overrides, then validates the
// result. A zero Stakes, NumShufflers or CurveName in overrides is treated
// as "not set" and left at the default; Button, SmallBlindSeat,
// BigBlindSeat and CheckRaiseAllowed are always taken from overrides,
// zero values included.
func Load(overrides TableConfig) (TableConfig, error) {
	cfg := Default()

	if overrides.Stakes != (Stakes{}) {
		cfg.Stakes = overrides.Stakes
	}
	if overrides.NumShufflers != 0 {
		cfg.NumShufflers = overrides.NumShufflers
	}
	if overrides.CurveName != "" {
		cfg.CurveName = overrides.CurveName
	}
	cfg.Button = overrides.Button
	cfg.SmallBlindSeat = overrides.SmallBlindSeat
	cfg.BigBlindSeat = overrides.BigBlindSeat
	cfg.CheckRaiseAllowed = overrides.CheckRaiseAllowed

	if err := cfg.Validate(); err != nil {
		return TableConfig{}, err
	}
	return cfg, nil
}

// Validate checks the configuration surface against the invariants
// spec.md's betting engine and shuffle committee assume hold on entry.
func (cfg TableConfig) Validate() error {
	if cfg.Stakes.SmallBlind <= 0 || cfg.Stakes.BigBlind <= 0 {
		return fmt.Errorf("config: small_blind and big_blind must be positive")
	}
	if cfg.Stakes.BigBlind < cfg.Stakes.SmallBlind {
		return fmt.Errorf("config: big_blind must be at least small_blind")
	}
	if cfg.Stakes.Ante < 0 {
		return fmt.Errorf("config: ante must not be negative")
	}
	if cfg.SmallBlindSeat == cfg.BigBlindSeat {
		return fmt.Errorf("config: small_blind_seat and big_blind_seat must differ")
	}
	if cfg.NumShufflers <= 0 {
		return fmt.Errorf("config: num_shufflers must be positive")
	}
	if cfg.CurveName != "bn254" {
		return fmt.Errorf("config: unsupported curve %q", cfg.CurveName)
	}
	return nil
}
