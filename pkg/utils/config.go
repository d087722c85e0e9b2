package utils

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig loads <path>/.env into the process environment (without
// overriding variables already set) and binds viper to the environment so
// keys like "app_port" resolve APP_PORT.
func LoadConfig(path string) {
	envFile := filepath.Join(path, ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("[CONFIG] could not read %s: %v", envFile, err)
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}
