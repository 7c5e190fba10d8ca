package controller

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config has the host-side settings. They are read from the environment by the CLI and saved in the
// app preferences by the UI.
type Config struct {
	SerialPort string `env:"SERIAL_PORT"`
	BaudRate   string `env:"BAUD_RATE" envDefault:"115200"`

	// RunLogAddr is the run log server that summaries are uploaded to. Uploads are skipped if empty.
	RunLogAddr string `env:"RUNLOG_ADDR"`
	RobotName  string `env:"ROBOT_NAME" envDefault:"linefollower"`

	TuningFile   string `env:"TUNING_FILE"`
	TuningPreset string `env:"TUNING_PRESET"`

	Debug bool `env:"DEBUG"`
}

// ConfigFromEnv reads the Config from environment variables
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config from env: %w", err)
	}
	return cfg, nil
}
