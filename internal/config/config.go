package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	LogLevel             string
	JWTSecret            string
	JWTExpirationMinutes int
	Location             *time.Location
	Database             DatabaseConfig
	Scheduling           SchedulingConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// SchedulingConfig holds the booking rules that are product decisions
// rather than invariants.
type SchedulingConfig struct {
	EnforceAvailability bool
	MaxAdvanceDays      int
}

// LoadConfig loads configuration from the environment, after loading a .env
// file if one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("PORT", "3001")
	v.SetDefault("ORIGIN", "http://localhost:4200")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "default_jwt_secret")
	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)
	v.SetDefault("APP_TIMEZONE", "Local")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "hospital")
	v.SetDefault("SCHEDULING_ENFORCE_AVAILABILITY", true)
	v.SetDefault("SCHEDULING_MAX_ADVANCE_DAYS", 14)

	loc, err := time.LoadLocation(v.GetString("APP_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	jwtExpMinutes := v.GetInt("JWT_EXPIRATION_MINUTES")
	if jwtExpMinutes <= 0 {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %d", jwtExpMinutes)
	}

	maxAdvance := v.GetInt("SCHEDULING_MAX_ADVANCE_DAYS")
	if maxAdvance < 0 {
		return nil, fmt.Errorf("invalid SCHEDULING_MAX_ADVANCE_DAYS: %d", maxAdvance)
	}

	dbConfig := DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
	}
	dbConfig.DSN = buildDSN(dbConfig, loc)

	return &Config{
		Port:                 v.GetString("PORT"),
		Origin:               v.GetString("ORIGIN"),
		Environment:          strings.ToLower(v.GetString("ENV")),
		LogLevel:             v.GetString("LOG_LEVEL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTExpirationMinutes: jwtExpMinutes,
		Location:             loc,
		Database:             dbConfig,
		Scheduling: SchedulingConfig{
			EnforceAvailability: v.GetBool("SCHEDULING_ENFORCE_AVAILABILITY"),
			MaxAdvanceDays:      maxAdvance,
		},
	}, nil
}

// IsDev reports whether the server runs in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// buildDSN builds the MySQL Data Source Name
func buildDSN(db DatabaseConfig, loc *time.Location) string {
	mc := mysql.NewConfig()
	mc.User = db.Username
	mc.Passwd = db.Password
	mc.Net = "tcp"
	mc.Addr = db.Host + ":" + db.Port
	mc.DBName = db.Name
	mc.ParseTime = true
	mc.Loc = loc
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}
