package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/klabast/wb-services/newsletter/internal/i18n"
	"github.com/klabast/wb-services/newsletter/internal/weather"
)

// Preference and cookie keys
const (
	PrefClassroom = "selectedClass"
	PrefDarkMode  = "darkMode"
	PrefAuth      = "newsletter_auth"
)

// Banner messages for essential content failures
const (
	MsgLoadFailed     = "Could not load the newsletter. Please check back later."
	MsgWeekLoadFailed = "Could not load newsletter for %s. The data file may be missing."
	MsgWrongPassword  = "Incorrect password. Please try again."
	ErrInternalServer = "Internal server error"
)

// ICS defaults
const (
	DefaultICSProductID     = "-//Bancroft ES//Newsletter//EN"
	DefaultICSSummarySuffix = " (DCPS)"
	DefaultICSDescription   = "From the DCPS 2025-26 School Calendar"
	DefaultFilePrefix       = "bancroft"
)

// DefaultGateDigest is the SHA-256 hex of the reader password shipped with the newsletter
const DefaultGateDigest = "94eaf28af84472141155e36562ac0de59d5ae8a37c334dc8ad402a99b8c9bf6b"

// Settings is the resolved service configuration
type Settings struct {
	Port        int
	DataDir     string
	DataURL     string
	AssetsDir   string
	Timezone    string
	DefaultLang i18n.Lang
	AuthFile    string
	LogLevel    string
	SchoolName  string

	GateDigest string
	GateDays   int

	WeatherEnabled  bool
	WeatherBaseURL  string
	WeatherLocation weather.Location
	WeatherHorizon  int
	WeatherTimeout  time.Duration

	ICSProductID     string
	ICSSummarySuffix string
	ICSDescription   string
	ICSUIDDomain     string
	FilePrefix       string
}

// Location returns the configured wall-clock zone, falling back to UTC
func (s *Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("data_dir", "data")
	v.SetDefault("data_url", "")
	v.SetDefault("assets_dir", "images")
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("default_lang", string(i18n.Spanish))
	v.SetDefault("auth_file", DefaultAuthFile)
	v.SetDefault("log_level", "info")
	v.SetDefault("school_name", "Bancroft Elementary")

	v.SetDefault("gate.digest", DefaultGateDigest)
	v.SetDefault("gate.days", 30)

	v.SetDefault("weather.enabled", true)
	v.SetDefault("weather.base_url", weather.DefaultBaseURL)
	v.SetDefault("weather.latitude", 38.9296)
	v.SetDefault("weather.longitude", -77.0325)
	v.SetDefault("weather.timezone", "America/New_York")
	v.SetDefault("weather.horizon_days", weather.DefaultHorizonDays)
	v.SetDefault("weather.timeout", 5*time.Second)

	v.SetDefault("ics.product_id", DefaultICSProductID)
	v.SetDefault("ics.summary_suffix", DefaultICSSummarySuffix)
	v.SetDefault("ics.description", DefaultICSDescription)
	v.SetDefault("ics.uid_domain", "newsletter.bancroft.local")
	v.SetDefault("ics.file_prefix", DefaultFilePrefix)
}

// LoadSettings reads configuration from NEWSLETTER_* environment variables,
// after loading envFile into the environment when it exists.
func LoadSettings(envFile string) (*Settings, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, errors.Wrapf(err, "load %s", envFile)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", envFile)
		}
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.SetEnvPrefix("NEWSLETTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return settingsFrom(v)
}

func settingsFrom(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Port:       v.GetInt("port"),
		DataDir:    v.GetString("data_dir"),
		DataURL:    v.GetString("data_url"),
		AssetsDir:  v.GetString("assets_dir"),
		Timezone:   v.GetString("timezone"),
		AuthFile:   v.GetString("auth_file"),
		LogLevel:   v.GetString("log_level"),
		SchoolName: v.GetString("school_name"),

		GateDigest: strings.ToLower(strings.TrimSpace(v.GetString("gate.digest"))),
		GateDays:   v.GetInt("gate.days"),

		WeatherEnabled: v.GetBool("weather.enabled"),
		WeatherBaseURL: v.GetString("weather.base_url"),
		WeatherLocation: weather.Location{
			Latitude:  v.GetFloat64("weather.latitude"),
			Longitude: v.GetFloat64("weather.longitude"),
			Timezone:  v.GetString("weather.timezone"),
		},
		WeatherHorizon: v.GetInt("weather.horizon_days"),
		WeatherTimeout: v.GetDuration("weather.timeout"),

		ICSProductID:     v.GetString("ics.product_id"),
		ICSSummarySuffix: v.GetString("ics.summary_suffix"),
		ICSDescription:   v.GetString("ics.description"),
		ICSUIDDomain:     v.GetString("ics.uid_domain"),
		FilePrefix:       v.GetString("ics.file_prefix"),
	}

	lang, ok := i18n.Parse(v.GetString("default_lang"))
	if !ok {
		return nil, errors.Errorf("default_lang must be one of %v", i18n.Supported)
	}
	s.DefaultLang = lang

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks settings that would otherwise fail at request time
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return errors.Errorf("invalid port %d", s.Port)
	}
	if s.DataDir == "" && s.DataURL == "" {
		return errors.New("one of data_dir or data_url is required")
	}
	if len(s.GateDigest) != 64 {
		return errors.New("gate.digest must be a SHA-256 hex digest")
	}
	if s.GateDays <= 0 {
		return errors.Errorf("invalid gate.days %d", s.GateDays)
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return errors.Wrapf(err, "timezone %q", s.Timezone)
	}
	return nil
}
