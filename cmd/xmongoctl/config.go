package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/omeyang/xdocstore/pkg/config/xconf"
	"github.com/omeyang/xdocstore/pkg/observability/xlog"
	"github.com/omeyang/xdocstore/pkg/storage/xmongo"
)

// envPrefix 是所有环境变量的前缀，例如 XMONGO_URI、XMONGO_RETRY_MAX_ATTEMPTS、XMONGO_LOG_LEVEL。
const envPrefix = "XMONGO_"

// defaultEnvFile 不存在时忽略；显式指定的 --env-file 必须存在。
const defaultEnvFile = ".env"

type appConfig struct {
	Mongo xmongo.Config `koanf:"mongo"`
	Log   xlog.Config   `koanf:"log"`
}

// configSources 描述一次配置加载的输入。
type configSources struct {
	File    string
	EnvFile string

	// Environment 为 nil 时读取进程环境变量。
	Environment map[string]string
}

// loadConfig 依次叠加配置文件、.env 与环境变量。命令行参数由调用方最后覆盖。
func loadConfig(src configSources) (appConfig, error) {
	var cfg appConfig

	if src.File != "" {
		loader := xconf.New()
		if err := loader.LoadFile(src.File); err != nil {
			return cfg, err
		}
		if err := loader.Unmarshal("", &cfg); err != nil {
			return cfg, err
		}
	}

	if err := loadEnvFile(src.EnvFile); err != nil {
		return cfg, err
	}

	mongoOpts := env.Options{Prefix: envPrefix, Environment: src.Environment}
	if err := env.ParseWithOptions(&cfg.Mongo, mongoOpts); err != nil {
		return cfg, fmt.Errorf("xmongoctl: parse environment: %w", err)
	}
	logOpts := env.Options{Prefix: envPrefix + "LOG_", Environment: src.Environment}
	if err := env.ParseWithOptions(&cfg.Log, logOpts); err != nil {
		return cfg, fmt.Errorf("xmongoctl: parse environment: %w", err)
	}
	return cfg, nil
}

// loadEnvFile 把 .env 中尚未设置的变量写入进程环境。
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("xmongoctl: env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("xmongoctl: env file %s: %w", path, err)
	}
	return nil
}
