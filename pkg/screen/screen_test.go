package screen

import (
	"context"
	"image"
	"image/color"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/odometer/pkg/odometer"
)

func TestToRGB565(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})

	buf := ToRGB565(img)
	require.Len(t, buf, Size*Size*2)

	// (0,0) is the last pixel of the first output row.
	assert.Equal(t, []byte{0x00, 0xf8}, buf[254:256])
	// (1,0) starts the second output row block.
	assert.Equal(t, []byte{0xff, 0xff}, buf[256+254:256+256])
	// (0,1) sits one pixel before (0,0).
	assert.Equal(t, []byte{0x1f, 0x00}, buf[252:254])
	// Everything else is black.
	assert.Equal(t, []byte{0, 0}, buf[0:2])
}

func TestRenderDrawsHeadingNeedle(t *testing.T) {
	isLit := func(img image.Image, x, y int) bool {
		r, g, b, _ := img.At(x, y).RGBA()
		return r+g+b > 0
	}

	east := Render(odometer.Pose{Theta: 0})
	north := Render(odometer.Pose{Theta: 90})
	assert.Equal(t, image.Rect(0, 0, Size, Size), east.Bounds())

	// Needle tip is 30px from the centre at (64, 88).
	assert.True(t, isLit(east, 64+30, 88))
	assert.False(t, isLit(east, 64, 88-30))
	assert.True(t, isLit(north, 64, 88-30))
	assert.False(t, isLit(north, 64+30, 88))
}

type fixedPose odometer.Pose

func (f fixedPose) Pose() odometer.Pose {
	return odometer.Pose(f)
}

func TestLoopWritesFramesAndBlanksOnExit(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "fb")
	require.NoError(t, ioutil.WriteFile(dev, nil, 0666))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		LoopUpdatingScreen(ctx, Config{Device: dev, Period: time.Millisecond}, fixedPose{Theta: 45}, nil)
	}()

	require.Eventually(t, func() bool {
		b, err := ioutil.ReadFile(dev)
		return err == nil && len(b) == Size*Size*2
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	b, err := ioutil.ReadFile(dev)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, Size*Size*2), b)
}

func TestLoopGivesUpWithoutDevice(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		LoopUpdatingScreen(context.Background(), Config{Device: "/nonexistent/fb"}, fixedPose{}, nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not return")
	}
}
