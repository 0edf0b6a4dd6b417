// Package config loads server configuration: a .env file / environment
// variables for process-level settings, plus an optional YAML tuning file for
// the simulation constants.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr         string
	TickInterval time.Duration
	Game         Game
	Modes        map[string]int // lobby capacity per game mode
}

// Game tunes the simulation.
type Game struct {
	BoardSize        int
	MountainRate     int
	VillageRate      int
	GarrisonMin      int
	GarrisonMax      int
	WeaponCost       int
	GlobalBonusEvery int // half-turns between global growth bonuses
}

func Defaults() Config {
	return Config{
		Addr:         ":3001",
		TickInterval: 500 * time.Millisecond,
		Game: Game{
			BoardSize:        20,
			MountainRate:     20,
			VillageRate:      3,
			GarrisonMin:      35,
			GarrisonMax:      45,
			WeaponCost:       200,
			GlobalBonusEvery: 50,
		},
		Modes: map[string]int{
			"ffa": 8,
			"1v1": 2,
			"2v2": 4,
		},
	}
}

type tuningFile struct {
	TickMs               int            `yaml:"tick_ms"`
	BoardSize            int            `yaml:"board_size"`
	MountainSpawnRate    *int           `yaml:"mountain_spawn_rate"`
	VillageSpawnRate     *int           `yaml:"village_spawn_rate"`
	VillageGarrisonMin   int            `yaml:"village_garrison_min"`
	VillageGarrisonMax   int            `yaml:"village_garrison_max"`
	WeaponCost           int            `yaml:"weapon_cost"`
	GlobalBonusHalfTurns int            `yaml:"global_bonus_half_turns"`
	Modes                map[string]int `yaml:"modes"`
}

// Load builds the config from defaults, an optional tuning file named by
// MOPMOP_TUNING, and environment overrides. A .env file in the working
// directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path := os.Getenv("MOPMOP_TUNING"); path != "" {
		if err := applyTuning(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if addr := os.Getenv("MOPMOP_ADDR"); addr != "" {
		cfg.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyTuning(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tuning: %w", err)
	}
	var t tuningFile
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("parse tuning %s: %w", path, err)
	}

	if t.TickMs > 0 {
		cfg.TickInterval = time.Duration(t.TickMs) * time.Millisecond
	}
	if t.BoardSize > 0 {
		cfg.Game.BoardSize = t.BoardSize
	}
	if t.MountainSpawnRate != nil {
		cfg.Game.MountainRate = *t.MountainSpawnRate
	}
	if t.VillageSpawnRate != nil {
		cfg.Game.VillageRate = *t.VillageSpawnRate
	}
	if t.VillageGarrisonMin > 0 {
		cfg.Game.GarrisonMin = t.VillageGarrisonMin
	}
	if t.VillageGarrisonMax > 0 {
		cfg.Game.GarrisonMax = t.VillageGarrisonMax
	}
	if t.WeaponCost > 0 {
		cfg.Game.WeaponCost = t.WeaponCost
	}
	if t.GlobalBonusHalfTurns > 0 {
		cfg.Game.GlobalBonusEvery = t.GlobalBonusHalfTurns
	}
	if len(t.Modes) > 0 {
		cfg.Modes = t.Modes
	}
	return nil
}

func (c Config) validate() error {
	g := c.Game
	if g.BoardSize < 2 {
		return fmt.Errorf("board_size %d too small", g.BoardSize)
	}
	if g.MountainRate < 0 || g.VillageRate < 0 || g.MountainRate+g.VillageRate > 100 {
		return fmt.Errorf("spawn rates %d/%d out of range", g.MountainRate, g.VillageRate)
	}
	if g.GarrisonMin <= 0 || g.GarrisonMax < g.GarrisonMin {
		return fmt.Errorf("garrison range [%d,%d] invalid", g.GarrisonMin, g.GarrisonMax)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	return nil
}
