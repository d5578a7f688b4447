package config

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"

	"github.com/tigerbot-team/odometer/pkg/chassis"
	"github.com/tigerbot-team/odometer/pkg/encoder"
	"github.com/tigerbot-team/odometer/pkg/poseweb"
	"github.com/tigerbot-team/odometer/pkg/screen"
	"github.com/tigerbot-team/odometer/pkg/timer"
)

const (
	DefaultPath = "/cfg/odometer.yaml"
	InUseSuffix = "-in-use.yaml"
	PathEnvVar  = "ODOM_CONFIG"
)

type Config struct {
	Geometry       chassis.Geometry `yaml:"geometry"`
	SampleInterval time.Duration    `yaml:"sample_interval" env:"ODOM_SAMPLE_INTERVAL"`
	AutoStart      bool             `yaml:"autostart" env:"ODOM_AUTOSTART"`

	Encoder encoder.Config `yaml:"encoder"`
	Screen  screen.Config  `yaml:"screen"`
	Web     poseweb.Config `yaml:"web"`
}

func Default() Config {
	return Config{
		Geometry:       chassis.DefaultGeometry(),
		SampleInterval: timer.DefaultInterval,
		AutoStart:      true,
		Encoder:        encoder.DefaultConfig(),
		Screen:         screen.DefaultConfig(),
		Web:            poseweb.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults, then applies any ODOM_*
// environment overrides. A missing file is not an error.
func Load(path string, log *zap.SugaredLogger) (Config, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg := Default()

	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Infow("No config file, using defaults", "path", path)
	} else if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	} else if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", path)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "failed to apply environment overrides")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteInUse records the config actually being used next to the one that was
// loaded, so it's easy to see what the robot ran with.
func (c Config) WriteInUse(path string) error {
	out, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, out, 0666)
}

// InUsePath maps /cfg/odometer.yaml to /cfg/odometer-in-use.yaml.
func InUsePath(path string) string {
	return strings.TrimSuffix(path, ".yaml") + InUseSuffix
}
