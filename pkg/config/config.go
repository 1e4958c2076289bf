// Package config loads the scheduler's runtime configuration: calendar
// constants, solver bounds, event thresholds, and database connection
// parameters, merged from hardcoded defaults and the environment.
package config

import "time"

// Calendar holds the working-hour calendar constants of spec §6.
type Calendar struct {
	WorkStartHour  int `koanf:"work_start_hour"`
	WorkEndHour    int `koanf:"work_end_hour"`
	ScaleFactor    int `koanf:"scale_factor"`
	HorizonDays    int `koanf:"horizon_days"`
}

// WorkHoursPerDay returns the number of working hours per calendar day.
func (c Calendar) WorkHoursPerDay() int { return c.WorkEndHour - c.WorkStartHour }

// UnitsPerDay returns the number of WTU in one working day.
func (c Calendar) UnitsPerDay() int { return c.WorkHoursPerDay() * c.ScaleFactor }

// Horizon returns the total WTU horizon, HorizonDays * UnitsPerDay.
func (c Calendar) Horizon() int { return c.HorizonDays * c.UnitsPerDay() }

// Solver holds the CP Solver Driver's bounds (§4.4).
type Solver struct {
	AbsoluteCap      time.Duration `koanf:"absolute_cap"`
	StagnationCap    time.Duration `koanf:"stagnation_cap"`
	Workers          int           `koanf:"workers"`
	Seed             int64         `koanf:"seed"`
	SampleCheckpoints int          `koanf:"sample_checkpoints"`
}

// Thresholds holds the break-duration thresholds of §4.7.
type Thresholds struct {
	ShortBreakMinutes      int `koanf:"short_break_minutes"`
	CumulativeBreakMinutes int `koanf:"cumulative_break_minutes"`
}

// Database holds pgx connection parameters.
type Database struct {
	Host            string        `koanf:"host"`
	Port            string        `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	DBName          string        `koanf:"db_name"`
	SSLMode         string        `koanf:"ssl_mode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// Config is the root configuration object.
type Config struct {
	Calendar   Calendar   `koanf:"calendar"`
	Solver     Solver     `koanf:"solver"`
	Thresholds Thresholds `koanf:"thresholds"`
	Database   Database   `koanf:"database"`
	LogLevel   string     `koanf:"log_level"`
}

// Default returns the hardcoded production defaults from spec §6.
func Default() *Config {
	return &Config{
		Calendar: Calendar{
			WorkStartHour: 9,
			WorkEndHour:   17,
			ScaleFactor:   100,
			HorizonDays:   60,
		},
		Solver: Solver{
			AbsoluteCap:       120 * time.Second,
			StagnationCap:     60 * time.Second,
			Workers:           8,
			Seed:              1,
			SampleCheckpoints: 24,
		},
		Thresholds: Thresholds{
			ShortBreakMinutes:      30,
			CumulativeBreakMinutes: 30,
		},
		Database: Database{
			Host:         "localhost",
			Port:         "5432",
			User:         "postgres",
			DBName:       "rso",
			SSLMode:      "disable",
			MaxOpenConns: 20,
			MaxIdleConns: 2,
		},
		LogLevel: "info",
	}
}
