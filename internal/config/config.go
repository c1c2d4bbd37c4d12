package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "LWGEOM_"

// Bounds is the extent tiles are computed over, in the units of BoundsSRID.
type Bounds struct {
	XMin, YMin, XMax, YMax float64
	IsSet                  bool
}

// ParseBounds parses a bounds string in format "xmin,ymin,xmax,ymax"
func ParseBounds(s string) (*Bounds, error) {
	if s == "" {
		return &Bounds{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, errors.New("bounds must have 4 values: xmin,ymin,xmax,ymax")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid bounds coordinate %q", p)
		}
		coords[i] = v
	}

	b := &Bounds{
		XMin:  coords[0],
		YMin:  coords[1],
		XMax:  coords[2],
		YMax:  coords[3],
		IsSet: true,
	}

	if b.XMin >= b.XMax {
		return nil, errors.Newf("xmin (%g) must be < xmax (%g)", b.XMin, b.XMax)
	}
	if b.YMin >= b.YMax {
		return nil, errors.Newf("ymin (%g) must be < ymax (%g)", b.YMin, b.YMax)
	}

	return b, nil
}

// String formats the bounds the way ParseBounds reads them.
func (b *Bounds) String() string {
	if b == nil || !b.IsSet {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g,%g", b.XMin, b.YMin, b.XMax, b.YMax)
}

// UnmarshalYAML reads bounds written as a "xmin,ymin,xmax,ymax" string.
func (b *Bounds) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseBounds(s)
	if err != nil {
		return err
	}
	*b = *parsed
	return nil
}

// Config holds the settings shared by all commands
type Config struct {
	// Output settings
	Precision   int    `yaml:"precision"`    // Significant decimals in WKT output
	DefaultSRID int32  `yaml:"default_srid"` // SRID assigned to plain WKT input
	OutputDir   string `yaml:"output_dir"`

	// Tile settings
	Bounds     *Bounds `yaml:"bounds"`      // Nil or unset means the Web Mercator world
	BoundsSRID int32   `yaml:"bounds_srid"` // SRID of Bounds, 0 keeps 3857
	Margin     float64 `yaml:"margin"`

	// Processing settings
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`

	// Database settings (pgxgeom)
	DBHost     string `yaml:"db_host"`
	DBPort     int    `yaml:"db_port"`
	DBName     string `yaml:"db_name"`
	DBUser     string `yaml:"db_user"`
	DBPassword string `yaml:"db_password"`

	// Logging and metrics
	Verbose         bool          `yaml:"verbose"`
	LogFile         string        `yaml:"log_file"`         // Empty = no file logging
	MetricsInterval time.Duration `yaml:"metrics_interval"` // Zero disables metrics logging
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Precision:       15,
		OutputDir:       ".",
		Bounds:          &Bounds{},
		Workers:         runtime.NumCPU(),
		BatchSize:       10000,
		DBHost:          "localhost",
		DBPort:          5432,
		DBName:          "postgres",
		DBUser:          "postgres",
		MetricsInterval: 30 * time.Second,
	}
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// ApplyEnv overlays LWGEOM_* variables onto c. Values from envFile (a
// dotenv file, ignored when missing) apply only where the process
// environment does not set the variable.
func (c *Config) ApplyEnv(envFile string) error {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case !os.IsNotExist(err):
			return errors.Wrapf(err, "failed to read %s", envFile)
		}
	}

	lookup := func(name string) (string, bool) {
		key := EnvPrefix + name
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	var errs error
	setInt := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = errors.CombineErrors(errs, errors.Wrapf(err, "%s%s", EnvPrefix, name))
				return
			}
			*dst = n
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}

	setInt("PRECISION", &c.Precision)
	setInt("WORKERS", &c.Workers)
	setInt("BATCH_SIZE", &c.BatchSize)
	setInt("DB_PORT", &c.DBPort)
	setString("OUTPUT_DIR", &c.OutputDir)
	setString("LOG_FILE", &c.LogFile)
	setString("DB_HOST", &c.DBHost)
	setString("DB_NAME", &c.DBName)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)

	srid, boundsSRID := int(c.DefaultSRID), int(c.BoundsSRID)
	setInt("SRID", &srid)
	setInt("BOUNDS_SRID", &boundsSRID)
	c.DefaultSRID, c.BoundsSRID = int32(srid), int32(boundsSRID)
	if v, ok := lookup("BOUNDS"); ok {
		b, err := ParseBounds(v)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "%sBOUNDS", EnvPrefix))
		} else {
			c.Bounds = b
		}
	}
	if v, ok := lookup("VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "%sVERBOSE", EnvPrefix))
		} else {
			c.Verbose = b
		}
	}

	return errs
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Precision < 0 || c.Precision > 20 {
		return errors.Newf("precision must be between 0 and 20, got %d", c.Precision)
	}
	if c.DefaultSRID < 0 || c.BoundsSRID < 0 {
		return errors.New("srid must not be negative")
	}
	if c.Margin < -0.5 {
		return errors.Newf("margin must be at least -0.5, got %g", c.Margin)
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.BatchSize < 1 {
		return errors.New("batch size must be at least 1")
	}
	return nil
}
