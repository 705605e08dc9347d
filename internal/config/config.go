// Package config handles input from etc/main.toml and the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvConfigJSON names the environment variable holding a JSON document merged over the file config.
	EnvConfigJSON = "LDAPAUTH_CONFIG_JSON"

	defaultMainWiki    = "xwiki"
	defaultShutDown    = 5
	defaultTokenExpiry = 8 * 60 * 60 // seconds
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c   Config
		v   = viper.New()
		err error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v.SetConfigFile(path + "main.toml")

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		if err = mergeJSON(v, configAsJSON); err != nil {
			return Config{}, err
		}
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	c.props = NewViperProperties(v)

	return c, validate(&c)
}

func mergeJSON(v *viper.Viper, configAsJSON string) error {
	v.SetConfigType("json")

	if err := v.MergeConfig(strings.NewReader(configAsJSON)); err != nil {
		return errors.Wrap(err, "failed to merge json config from env")
	}

	return nil
}

// validate minimal config settings and fill defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.JWTSecret == "" && !c.DevMode {
		return errors.Wrap(ErrEmptyJWTSecret, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMemory
	case EngineMySQL, EnginePostgres, EngineSQLite, EngineMemory:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDown
	}

	if c.Webserver.TokenExpiry == 0 {
		c.Webserver.TokenExpiry = defaultTokenExpiry * time.Second
	}

	if c.Wiki.Main == "" {
		c.Wiki.Main = defaultMainWiki
	}

	return nil
}
