package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultPort      = "8080"
	DefaultStaticDir = "static"
	DefaultImageName = "a_churrasco_image.png"
	DefaultEnvFile   = ".env"
)

// Keys recognized in the environment and in the dotenv file.
const (
	KeyService        = "K_SERVICE"
	KeyBucket         = "GCS_BUCKET_NAME"
	KeyServiceAccount = "SERVICE_ACCOUNT_EMAIL"
	KeyPort           = "PORT"
	KeyStaticDir      = "STATIC_DIR"
	KeyImageName      = "IMAGE_NAME"
	KeyDebug          = "DEBUG"
	KeyLogFile        = "LOG_FILE"
)

// Mode is where the process is running.
type Mode int

const (
	// Local is a developer machine; images come from the static directory.
	Local Mode = iota
	// Managed is Cloud Run; images are served through signed Cloud Storage URLs.
	Managed
)

func (m Mode) String() string {
	switch m {
	case Local:
		return "local"
	case Managed:
		return "managed"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type Config struct {
	Mode           Mode
	// Service is the K_SERVICE value, empty in local mode.
	Service        string
	Bucket         string
	ServiceAccount string

	Port      string
	StaticDir string
	ImageName string
	Debug     bool
	LogFile   string
}

// MissingError is returned by Validate when a value required by the mode is empty.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s is required in managed mode", e.Key)
}

// Validate checks that managed mode has a bucket and a signer identity.
func (c *Config) Validate() error {
	if c.Mode != Managed {
		return nil
	}
	if c.Bucket == "" {
		return &MissingError{Key: KeyBucket}
	}
	if c.ServiceAccount == "" {
		return &MissingError{Key: KeyServiceAccount}
	}
	return nil
}

// Flag names bound by BindFlags.
const (
	FlagPort      = "port"
	FlagStaticDir = "static-dir"
	FlagImage     = "image"
	FlagEnvFile   = "env-file"
	FlagDebug     = "debug"
	FlagLogFile   = "log-file"
)

// BindFlags registers the flags that Load understands on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagPort, "", "port to listen on (env PORT)")
	fs.String(FlagStaticDir, "", "directory served under /static/ (env STATIC_DIR)")
	fs.String(FlagImage, "", "image object name (env IMAGE_NAME)")
	fs.String(FlagEnvFile, DefaultEnvFile, "dotenv file to read if it exists")
	fs.Bool(FlagDebug, false, "enable debug logging (env DEBUG)")
	fs.String(FlagLogFile, "", "also write logs to this rotating file (env LOG_FILE)")
}

// Load resolves the configuration once. Flags in fs override the environment,
// which overrides the dotenv file, which overrides defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyStaticDir, DefaultStaticDir)
	v.SetDefault(KeyImageName, DefaultImageName)
	v.SetDefault(KeyDebug, false)
	v.AutomaticEnv()

	envFile := DefaultEnvFile
	if fs != nil {
		if f := fs.Lookup(FlagEnvFile); f != nil {
			envFile = f.Value.String()
		}
		binds := map[string]string{
			KeyPort:      FlagPort,
			KeyStaticDir: FlagStaticDir,
			KeyImageName: FlagImage,
			KeyDebug:     FlagDebug,
			KeyLogFile:   FlagLogFile,
		}
		for key, name := range binds {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if envFile != "" {
		if err := readEnvFile(v, envFile); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Service:        strings.TrimSpace(v.GetString(KeyService)),
		Bucket:         strings.TrimSpace(v.GetString(KeyBucket)),
		ServiceAccount: strings.TrimSpace(v.GetString(KeyServiceAccount)),
		Port:           v.GetString(KeyPort),
		StaticDir:      v.GetString(KeyStaticDir),
		ImageName:      v.GetString(KeyImageName),
		Debug:          v.GetBool(KeyDebug),
		LogFile:        v.GetString(KeyLogFile),
	}
	if cfg.Service != "" {
		cfg.Mode = Managed
	}
	if cfg.ImageName == "" {
		return nil, fmt.Errorf("%s must not be empty", KeyImageName)
	}
	return cfg, nil
}

func readEnvFile(v *viper.Viper, path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("env file %s is a directory", path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading env file %s: %w", path, err)
	}
	return nil
}
