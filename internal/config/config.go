// ABOUTME: Viper-based configuration loading
// ABOUTME: Defaults, environment overrides and an optional TOML file in the config dir
package config

import (
	"errors"
	"strings"

	"github.com/harperreed/termvid/internal/filesystem"
	"github.com/harperreed/termvid/internal/version"
	"github.com/harperreed/termvid/internal/where"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps dotted keys to environment variable names
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Setup registers defaults and env bindings then reads termvid.toml if present
func Setup() error {
	viper.SetConfigName(version.Binary)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(version.Binary)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}

	return nil
}
