package config

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment overrides, applied after an optional .env file is loaded.
const (
	EnvConfigPath    = "CATAID_CONFIG"
	EnvDBPassword    = "CATAID_DB_PASSWORD"
	EnvAccessSecret  = "CATAID_ACCESS_SECRET"
	EnvRefreshSecret = "CATAID_REFRESH_SECRET"
)

// DefaultPath is used when CATAID_CONFIG is not set.
const DefaultPath = "config.xml"

var (
	cfg *APIConfig
	mu  sync.RWMutex
)

// APIConfig represents the root element.
type APIConfig struct {
	XMLName        xml.Name             `xml:"API"`
	RequestDump    bool                 `xml:"REQUEST_DUMP,attr"`
	Context        ContextConfig        `xml:"CONTEXT"`
	Authentication AuthenticationConfig `xml:"AUTHENTICATION"`
	Pagination     PaginationConfig     `xml:"PAGINATION"`
	DB             DBConfig             `xml:"DB"`
	Logging        LoggingConfig        `xml:"LOGGING"`
	Assessment     AssessmentConfig     `xml:"ASSESSMENT"`
	Report         ReportConfig         `xml:"REPORT"`
}

// ContextConfig holds basic server settings.
type ContextConfig struct {
	Port     int    `xml:"PORT"`
	Host     string `xml:"HOST"`
	Path     string `xml:"PATH"`
	TimeZone string `xml:"TIME_ZONE"`
}

// AuthenticationConfig holds authentication settings.
type AuthenticationConfig struct {
	EnableTokenAuth bool   `xml:"ENABLE_TOKEN_AUTH"`
	SessionTimeout  int    `xml:"SESSION_TIMEOUT"`
	AccessSecret    string `xml:"ACCESS_SECRET"`
	RefreshSecret   string `xml:"REFRESH_SECRET"`
}

// PaginationConfig holds pagination settings.
type PaginationConfig struct {
	PageSize int `xml:"PAGE_SIZE"`
}

// DBConfig holds database connection settings.
type DBConfig struct {
	Initialize bool         `xml:"INITIALIZE"`
	Host       string       `xml:"HOST"`
	Port       int          `xml:"PORT"`
	SSLMode    string       `xml:"SSL_MODE"`
	Names      DBNames      `xml:"NAMES"`
	Username   string       `xml:"USERNAME"`
	Password   DBPassword   `xml:"PASSWORD"`
	Pool       DBPoolConfig `xml:"POOL"`
}

// DBNames holds the names defined in the DB section.
type DBNames struct {
	CATAID string `xml:"CATAID,attr"`
}

// DBPassword holds password details.
type DBPassword struct {
	Type  string `xml:"TYPE,attr"`
	Value string `xml:",chardata"`
}

// DBPoolConfig holds database connection pooling settings.
type DBPoolConfig struct {
	MaxOpenConns    int `xml:"MAX_OPEN_CONNS"`
	MaxIdleConns    int `xml:"MAX_IDLE_CONNS"`
	ConnMaxLifetime int `xml:"CONN_MAX_LIFETIME"`
}

// LoggingConfig controls the leveled logger.
type LoggingConfig struct {
	Dir        string `xml:"DIR"`
	Level      string `xml:"LEVEL"`
	MaxSizeMB  int    `xml:"MAX_SIZE_MB"`
	MaxBackups int    `xml:"MAX_BACKUPS"`
	MaxAgeDays int    `xml:"MAX_AGE_DAYS"`
}

// AssessmentConfig points at the question catalog and recommendation library.
type AssessmentConfig struct {
	CatalogPath string `xml:"CATALOG"`
	LibraryPath string `xml:"LIBRARY"`
}

// DefaultAssessmentConfig returns the data file locations used when the
// configuration leaves them out.
func DefaultAssessmentConfig() AssessmentConfig {
	return AssessmentConfig{
		CatalogPath: "data/catalog.json",
		LibraryPath: "data/recommendations.json",
	}
}

// ReportConfig holds export settings.
type ReportConfig struct {
	Title        string  `xml:"TITLE"`
	Organisation string  `xml:"ORGANISATION"`
	ExportRate   float64 `xml:"EXPORT_RATE"`
	ExportBurst  int     `xml:"EXPORT_BURST"`
}

// Load reads the file named by CATAID_CONFIG, or DefaultPath.
func Load() (*APIConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	path := os.Getenv(EnvConfigPath)
	if path == "" {
		path = DefaultPath
	}
	return LoadConfig(path)
}

// LoadConfig loads and parses the XML configuration from the given file and
// makes it the current configuration.
func LoadConfig(xmlPath string) (*APIConfig, error) {
	f, err := os.Open(xmlPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config %s", xmlPath)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %s", xmlPath)
	}

	newCfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", xmlPath)
	}

	mu.Lock()
	cfg = newCfg
	mu.Unlock()
	return newCfg, nil
}

// Parse decodes XML configuration, applies defaults and environment overrides.
func Parse(data []byte) (*APIConfig, error) {
	var newCfg APIConfig
	if err := xml.Unmarshal(data, &newCfg); err != nil {
		return nil, err
	}
	newCfg.applyDefaults()
	newCfg.applyEnv()
	return &newCfg, nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *APIConfig {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func (c *APIConfig) applyDefaults() {
	if c.Context.Port == 0 {
		c.Context.Port = 8080
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = 20
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	def := DefaultAssessmentConfig()
	if c.Assessment.CatalogPath == "" {
		c.Assessment.CatalogPath = def.CatalogPath
	}
	if c.Assessment.LibraryPath == "" {
		c.Assessment.LibraryPath = def.LibraryPath
	}
	if c.Report.ExportRate <= 0 {
		c.Report.ExportRate = 2
	}
	if c.Report.ExportBurst <= 0 {
		c.Report.ExportBurst = 5
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
}

func (c *APIConfig) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDBPassword)); v != "" {
		c.DB.Password = DBPassword{Type: "env", Value: v}
	}
	if v := os.Getenv(EnvAccessSecret); v != "" {
		c.Authentication.AccessSecret = v
	}
	if v := os.Getenv(EnvRefreshSecret); v != "" {
		c.Authentication.RefreshSecret = v
	}
}

// DSN builds the postgres connection string.
func (d DBConfig) DSN() string {
	var b strings.Builder
	write := func(k, v string) {
		if v == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k + "=" + v)
	}
	write("host", d.Host)
	if d.Port > 0 {
		write("port", strconv.Itoa(d.Port))
	}
	write("user", d.Username)
	write("password", strings.TrimSpace(d.Password.Value))
	write("dbname", d.Names.CATAID)
	write("sslmode", d.SSLMode)
	return b.String()
}
