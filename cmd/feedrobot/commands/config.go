package commands

import (
	"os"

	"github.com/Goofy-Goldberg/wechat-adb-robot/internal/feed"
	"github.com/Goofy-Goldberg/wechat-adb-robot/lib/configutil"
	configsqlite "github.com/Goofy-Goldberg/wechat-adb-robot/lib/configutil/sqlite"
	"github.com/Goofy-Goldberg/wechat-adb-robot/services/articles"

	"github.com/joho/godotenv"
)

type DeviceConfig struct {
	Serial  string `json:"serial"`
	AdbPath string `json:"adb_path"`
}

type ApiConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type Config struct {
	Device DeviceConfig        `json:"device"`
	Db     configsqlite.Struct `json:"db"`
	Feed   feed.Config         `json:"feed"`
	Api    ApiConfig           `json:"api"`
	Sync   articles.SyncConfig `json:"sync"`
}

// loadConfig reads the json5 config, with a .env/environment fallback for
// the device serial so it never has to be committed.
func loadConfig() (Config, error) {
	godotenv.Load()

	cfg, err := configutil.ReadConfig[Config](*configFile)
	if err != nil {
		return Config{}, err
	}
	if cfg.Device.Serial == "" {
		cfg.Device.Serial = os.Getenv("DEVICE_SERIAL")
	}
	if cfg.Db.File == "" {
		cfg.Db.File = "articles.db"
	}
	return cfg, nil
}
