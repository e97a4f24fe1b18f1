package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/happybomber/arena-server/internal/match"
)

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     uint   `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DbName   string `json:"db_name"`
}

func (p PostgresConfig) DbUrl() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		p.Host, p.Port, p.User, p.Password, p.DbName,
	)
}

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		if err != nil {
			return err
		}
		return nil

	default:
		return errors.New("invalid duration")
	}
}

type JwtConfig struct {
	TokenLifetime  Duration `json:"token_lifetime"`
	PrivateKeyPath string   `json:"private_key_path"`
	PublicKeyPath  string   `json:"public_key_path"`
}

type MatchConfig struct {
	GridSize      int      `json:"grid_size"`
	BombCount     int      `json:"bomb_count"`
	Capacity      int      `json:"capacity"`
	RoundDuration Duration `json:"round_duration"`
	HouseFeeBP    int64    `json:"house_fee_bp"`
}

// Params fills a parameter set for the given stake, falling back to the
// engine defaults for anything the config leaves zero.
func (m MatchConfig) Params(stake int64) match.Params {
	params := match.DefaultParams(stake)
	if m.GridSize > 0 {
		params.GridSize = m.GridSize
	}
	if m.BombCount > 0 {
		params.BombCount = m.BombCount
	}
	if m.Capacity > 0 {
		params.Capacity = m.Capacity
	}
	if m.RoundDuration.Duration > 0 {
		params.RoundDuration = m.RoundDuration.Duration
	}
	if m.HouseFeeBP > 0 {
		params.HouseFeeBP = m.HouseFeeBP
	}
	return params
}

type LogConfig struct {
	FilePath   string `json:"file_path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

type Config struct {
	Mode     string         `json:"mode"`
	Addr     string         `json:"addr"`
	Domain   string         `json:"domain"`
	Postgres PostgresConfig `json:"postgres"`
	Jwt      JwtConfig      `json:"jwt"`
	Match    MatchConfig    `json:"match"`
	Log      LogConfig      `json:"log"`
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":                 c.Mode,
		"addr":                 c.Addr,
		"domain":               c.Domain,
		"pg_host":              c.Postgres.Host,
		"pg_port":              c.Postgres.Port,
		"pg_user":              c.Postgres.User,
		"pg_db_name":           c.Postgres.DbName,
		"jwt_token_lifetime":   c.Jwt.TokenLifetime.Duration.String(),
		"jwt_private_key_path": c.Jwt.PrivateKeyPath,
		"jwt_public_key_path":  c.Jwt.PublicKeyPath,
		"match_grid_size":      c.Match.GridSize,
		"match_bomb_count":     c.Match.BombCount,
		"match_capacity":       c.Match.Capacity,
		"match_round_duration": c.Match.RoundDuration.Duration.String(),
		"match_house_fee_bp":   c.Match.HouseFeeBP,
		"log_file_path":        c.Log.FilePath,
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return c.Mode != "production"
}

func (c Config) HttpCookieSameSite() http.SameSite {
	if c.Development() {
		return http.SameSiteNoneMode
	} else {
		return http.SameSiteStrictMode
	}
}

func ReadConfig(path string, config *Config) error {
	if b, err := os.ReadFile(path); err != nil {
		return err
	} else {
		return json.Unmarshal(b, config)
	}
}
