package config

import (
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	IsDebug  bool   `yaml:"is_debug" env-default:"false"`
	TimeZone string `yaml:"time_zone" env-default:"UTC"`
	Station  struct {
		Id                string `yaml:"id" env:"STATION_ID"`
		Vendor            string `yaml:"vendor" env-default:"Pionix"`
		Model             string `yaml:"model" env-default:"Yeti"`
		SerialNumber      string `yaml:"serial_number" env-default:""`
		FirmwareVersion   string `yaml:"firmware_version" env-default:""`
		EvseCount         int    `yaml:"evse_count" env-default:"1"`
		ConnectorsPerEvse int    `yaml:"connectors_per_evse" env-default:"1"`
	} `yaml:"station"`
	Csms struct {
		Url               string `yaml:"url" env:"CSMS_URL"`
		SecurityProfile   int    `yaml:"security_profile" env-default:"1"`
		BasicAuthPassword string `yaml:"basic_auth_password" env:"CSMS_PASSWORD" env-default:""`
		RootCaFile        string `yaml:"root_ca_file" env-default:""`
		ClientCertFile    string `yaml:"client_cert_file" env-default:""`
		ClientKeyFile     string `yaml:"client_key_file" env-default:""`
	} `yaml:"csms"`
	Timing struct {
		MessageTimeout          int `yaml:"message_timeout" env-default:"30"`
		MessageAttempts         int `yaml:"message_attempts" env-default:"3"`
		MessageAttemptInterval  int `yaml:"message_attempt_interval" env-default:"10"`
		RetryBackoffWaitMinimum int `yaml:"retry_backoff_wait_minimum" env-default:"3"`
		RetryBackoffRepeatTimes int `yaml:"retry_backoff_repeat_times" env-default:"5"`
		RetryBackoffRandomRange int `yaml:"retry_backoff_random_range" env-default:"5"`
		BootRetryInterval       int `yaml:"boot_retry_interval" env-default:"30"`
		HeartbeatInterval       int `yaml:"heartbeat_interval" env-default:"300"`
	} `yaml:"timing"`
	Queue struct {
		NormalCapacity int `yaml:"normal_capacity" env-default:"64"`
	} `yaml:"queue"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"localhost"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env-default:""`
		Database string `yaml:"database" env-default:"evcp"`
	} `yaml:"mongo"`
	Badger struct {
		Path string `yaml:"path" env-default:"db"`
	} `yaml:"badger"`
	Pki struct {
		CertDir      string `yaml:"cert_dir" env-default:"certs"`
		Organization string `yaml:"organization" env-default:""`
		Country      string `yaml:"country" env-default:""`
	} `yaml:"pki"`
	Api struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port    string `yaml:"port" env-default:"5010"`
	} `yaml:"api"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env-default:"9100"`
	} `yaml:"metrics"`
	Telegram struct {
		Enabled bool   `yaml:"enabled" env-default:"false"`
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	} `yaml:"telegram"`
}

var instance *Config
var once sync.Once

func GetConfig() (*Config, error) {
	var err error
	once.Do(func() {
		log.Println("reading config")
		instance = &Config{}
		if err = cleanenv.ReadConfig("config.yml", instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			log.Println(desc)
			log.Println(err)
			instance = nil
		}
	})
	return instance, err
}
