package config

import (
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/odometer/pkg/chassis"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "odometer.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0666))
	return path
}

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20*time.Millisecond, cfg.SampleInterval)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, "dummy", cfg.Encoder.Type)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
geometry:
  left_wheel_radius_mm: 21
  right_wheel_radius_mm: 21.5
  track_width_mm: 155
sample_interval: 10ms
autostart: false
encoder:
  type: serial
  device: /dev/ttyACM0
  invert_left: true
web:
  listen: ":9000"
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, chassis.Geometry{
		LeftWheelRadiusMM:  21,
		RightWheelRadiusMM: 21.5,
		TrackWidthMM:       155,
		CountsPerRev:       360, // untouched default
	}, cfg.Geometry)
	assert.Equal(t, 10*time.Millisecond, cfg.SampleInterval)
	assert.False(t, cfg.AutoStart)
	assert.Equal(t, "serial", cfg.Encoder.Type)
	assert.Equal(t, "/dev/ttyACM0", cfg.Encoder.Device)
	assert.True(t, cfg.Encoder.InvertLeft)
	assert.Equal(t, 115200, cfg.Encoder.Baud)
	assert.Equal(t, ":9000", cfg.Web.Listen)
	assert.True(t, cfg.Screen.Enabled)
}

func TestEnvironmentBeatsFile(t *testing.T) {
	path := writeConfig(t, "encoder:\n  type: i2c\n")
	t.Setenv("ODOM_ENCODER", "spi")
	t.Setenv("ODOM_TRACK_WIDTH_MM", "200")
	t.Setenv("ODOM_SAMPLE_INTERVAL", "5ms")
	t.Setenv("ODOM_SCREEN", "false")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "spi", cfg.Encoder.Type)
	assert.Equal(t, 200.0, cfg.Geometry.TrackWidthMM)
	assert.Equal(t, 5*time.Millisecond, cfg.SampleInterval)
	assert.False(t, cfg.Screen.Enabled)
}

func TestInvalidGeometryIsRejected(t *testing.T) {
	path := writeConfig(t, "geometry:\n  track_width_mm: 0\n")
	_, err := Load(path, nil)
	assert.True(t, errors.Is(err, chassis.ErrInvalidGeometry), "unexpected error %v", err)
}

func TestBadYAMLIsRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "geometry: [\n"), nil)
	assert.Error(t, err)

	// Typos in keys are caught rather than silently ignored.
	_, err = Load(writeConfig(t, "sampel_interval: 5ms\n"), nil)
	assert.Error(t, err)
}

func TestWriteInUseRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Geometry.TrackWidthMM = 123
	cfg.SampleInterval = 7 * time.Millisecond

	path := filepath.Join(t.TempDir(), "odometer.yaml")
	inUse := InUsePath(path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "odometer-in-use.yaml"), inUse)
	require.NoError(t, cfg.WriteInUse(inUse))

	loaded, err := Load(inUse, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
