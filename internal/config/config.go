package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
)

// Duration decodes TOML strings such as "30m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Store      StoreConfig      `toml:"store"`
	PokemonTCG PokemonTCGConfig `toml:"pokemontcg"`
	Auth       AuthConfig       `toml:"auth"`
	Images     ImagesConfig     `toml:"images"`
	Spaces     SpacesConfig     `toml:"spaces"`
	Reconcile  ReconcileConfig  `toml:"reconcile"`
}

type ServerConfig struct {
	Port             string   `toml:"port"`
	CORSOrigins      []string `toml:"cors_allowed_origins"`
	FrontendDistPath string   `toml:"frontend_dist_path"`
}

type StoreConfig struct {
	Backend           string `toml:"backend"`
	DBPath            string `toml:"db_path"`
	FirebaseProjectID string `toml:"firebase_project_id"`
	MongoURI          string `toml:"mongo_uri"`
	MongoDatabase     string `toml:"mongo_database"`
}

type PokemonTCGConfig struct {
	APIKey string `toml:"api_key"`
}

type AuthConfig struct {
	AdminKey     string `toml:"admin_key"`
	JWTSecret    string `toml:"jwt_secret"`
	FirebaseAuth bool   `toml:"firebase_auth"`
}

type ImagesConfig struct {
	Storage string `toml:"storage"`
	Dir     string `toml:"dir"`
}

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	CDNURL   string `toml:"cdn_url"`
}

type ReconcileConfig struct {
	Interval Duration `toml:"interval"`
}

// Default returns the settings used when neither a file nor the
// environment says otherwise.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Store: StoreConfig{
			Backend:       BackendSQLite,
			DBPath:        "./pokemon_collector.db",
			MongoDatabase: "pokemon_collector",
		},
		Images:    ImagesConfig{Storage: "local", Dir: "./data/images"},
		Reconcile: ReconcileConfig{Interval: Duration{30 * time.Minute}},
	}
}

// Load reads the TOML file at path, when path is not empty, over the
// defaults and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config: %w", err)
		}
		defer file.Close()
		if err := toml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Server.Port)
	str("FRONTEND_DIST_PATH", &c.Server.FrontendDistPath)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.CORSOrigins = splitList(v)
	}

	str("STORE_BACKEND", &c.Store.Backend)
	str("DB_PATH", &c.Store.DBPath)
	str("FIREBASE_PROJECT_ID", &c.Store.FirebaseProjectID)
	str("MONGO_URI", &c.Store.MongoURI)
	str("MONGO_DATABASE", &c.Store.MongoDatabase)

	str("POKEMONTCG_API_KEY", &c.PokemonTCG.APIKey)

	str("ADMIN_KEY", &c.Auth.AdminKey)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	if v, ok := lookup("FIREBASE_AUTH"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FIREBASE_AUTH: %w", err)
		}
		c.Auth.FirebaseAuth = enabled
	}

	str("IMAGE_STORAGE", &c.Images.Storage)
	str("IMAGES_DIR", &c.Images.Dir)
	str("SPACES_KEY", &c.Spaces.Key)
	str("SPACES_SECRET", &c.Spaces.Secret)
	str("SPACES_REGION", &c.Spaces.Region)
	str("SPACES_BUCKET", &c.Spaces.Bucket)
	str("SPACES_ENDPOINT", &c.Spaces.Endpoint)
	str("SPACES_CDN_URL", &c.Spaces.CDNURL)

	if v, ok := lookup("RECONCILE_INTERVAL"); ok && v != "" {
		if err := c.Reconcile.Interval.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("RECONCILE_INTERVAL: %w", err)
		}
	}
	return nil
}

// Validate checks the settings that depend on the chosen backends.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendFirestore:
		if c.Store.FirebaseProjectID == "" {
			return fmt.Errorf("store backend %q needs FIREBASE_PROJECT_ID", c.Store.Backend)
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store backend %q needs MONGO_URI", c.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Images.Storage {
	case "local":
	case "s3":
		if c.Spaces.Bucket == "" {
			return fmt.Errorf("image storage s3 needs SPACES_BUCKET")
		}
	default:
		return fmt.Errorf("unknown image storage %q", c.Images.Storage)
	}

	if c.Auth.FirebaseAuth && c.Store.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_AUTH needs FIREBASE_PROJECT_ID")
	}
	if c.Reconcile.Interval.Duration <= 0 {
		return fmt.Errorf("reconcile interval must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
