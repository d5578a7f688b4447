package screen

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/tigerbot-team/odometer/pkg/angle"
	"github.com/tigerbot-team/odometer/pkg/odometer"
)

// Size is the width and height of the display in pixels.
const Size = 128

type Config struct {
	Enabled bool          `yaml:"enabled" env:"ODOM_SCREEN"`
	Device  string        `yaml:"device" env:"ODOM_SCREEN_DEVICE"`
	Period  time.Duration `yaml:"period" env:"ODOM_SCREEN_PERIOD"`
}

func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Device:  "/dev/fb1",
		Period:  500 * time.Millisecond,
	}
}

type PoseSource interface {
	Pose() odometer.Pose
}

// LoopUpdatingScreen redraws the pose on the framebuffer until ctx is done,
// then blanks the screen. If the framebuffer can't be opened it gives up
// quietly; the robot runs fine without a screen.
func LoopUpdatingScreen(ctx context.Context, cfg Config, src PoseSource, log *zap.SugaredLogger) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0666)
	if err != nil {
		log.Infow("Failed to open screen, ignoring", "device", cfg.Device, "error", err)
		return
	}
	defer f.Close()

	period := cfg.Period
	if period <= 0 {
		period = DefaultConfig().Period
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var buf [Size * Size * 2]byte
			if err := writeFrame(f, buf[:]); err != nil {
				log.Warnw("Failed to blank screen", "error", err)
			}
			return
		case <-ticker.C:
		}

		if err := writeFrame(f, ToRGB565(Render(src.Pose()))); err != nil {
			log.Warnw("Screen failure", "error", err)
			return
		}
	}
}

func writeFrame(f *os.File, buf []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	const rowBytes = Size * 2
	for i := 0; i < Size; i++ {
		if _, err := f.Write(buf[i*rowBytes : (i+1)*rowBytes]); err != nil {
			return err
		}
		time.Sleep(10 * time.Microsecond)
	}
	return nil
}

// Render draws the pose as text plus a compass needle showing the heading.
func Render(p odometer.Pose) image.Image {
	dc := gg.NewContext(Size, Size)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawString(fmt.Sprintf("X %7.1f", p.X), 4, 14)
	dc.DrawString(fmt.Sprintf("Y %7.1f", p.Y), 4, 28)
	dc.DrawString(fmt.Sprintf("H %7.1f", p.Theta), 4, 42)

	const (
		cx, cy = Size / 2, 88
		radius = 34
	)
	dc.SetLineWidth(2)
	dc.DrawCircle(cx, cy, radius)
	dc.Stroke()

	// Screen y grows downwards, headings grow anticlockwise.
	rad := angle.Radians(p.Theta)
	tipX := cx + (radius-4)*math.Cos(rad)
	tipY := cy - (radius-4)*math.Sin(rad)
	dc.SetRGB(1, 0.2, 0)
	dc.SetLineWidth(3)
	dc.DrawLine(cx, cy, tipX, tipY)
	dc.Stroke()
	dc.DrawCircle(tipX, tipY, 3)
	dc.Fill()

	return dc.Image()
}

// ToRGB565 packs an image into the framebuffer's 16-bit little-endian
// format. The panel is mounted on its side, so columns become rows.
func ToRGB565(img image.Image) []byte {
	buf := make([]byte, Size*Size*2)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(Size-1-y)*2+x*Size*2+1] = (rb << 3) | (gb >> 3)
			buf[(Size-1-y)*2+x*Size*2] = bb | (gb << 5)
		}
	}
	return buf
}
