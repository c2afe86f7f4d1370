// Package camera captures webcam frames with OpenCV and turns consecutive
// frames into difference images.
package camera

import (
	"fmt"
	"image"
	"strconv"
	"sync"

	"go-motionmidi/debug"

	"gocv.io/x/gocv"
)

// Config holds capture parameters
type Config struct {
	Device string // camera index ("0") or a file/stream path
	Width  int
	Height int
	Mirror bool // flip horizontally so the picture works like a mirror
	Blur   int  // odd Gaussian kernel size applied before differencing, 0 = off
}

// Camera reads frames and keeps the previous one to difference against.
type Camera struct {
	config Config
	cap    *gocv.VideoCapture
	mu     sync.Mutex // protects frames

	frame gocv.Mat
	prev  gocv.Mat
	diff  gocv.Mat
	warm  bool
}

// Open starts capturing from cfg.Device.
func Open(cfg Config) (*Camera, error) {
	var device interface{} = cfg.Device
	if id, err := strconv.Atoi(cfg.Device); err == nil {
		device = id
	}
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open camera %q: %w", cfg.Device, err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	debug.Log("camera", "opened %s %dx%d", cfg.Device, cfg.Width, cfg.Height)
	return &Camera{
		config: cfg,
		cap:    vc,
		frame:  gocv.NewMat(),
		prev:   gocv.NewMat(),
		diff:   gocv.NewMat(),
	}, nil
}

// Size returns the size difference images will have.
func (c *Camera) Size() image.Point {
	return image.Pt(c.config.Width, c.config.Height)
}

// Next captures a frame and returns its difference against the previous
// one. The first call after Open returns an all-black image. The returned
// image stays valid until the next call to Next or Close.
func (c *Camera) Next() (*Diff, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ok := c.cap.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, fmt.Errorf("camera %q: no frame", c.config.Device)
	}
	if err := c.prepare(&c.frame); err != nil {
		return nil, err
	}

	if !c.warm {
		c.frame.CopyTo(&c.prev)
		c.warm = true
	}
	gocv.AbsDiff(c.frame, c.prev, &c.diff)
	c.frame.CopyTo(&c.prev)

	debug.LogEvery(300, "camera", "frame %dx%d", c.diff.Cols(), c.diff.Rows())
	return &Diff{mat: c.diff}, nil
}

// prepare resizes, mirrors and blurs a captured frame in place.
func (c *Camera) prepare(m *gocv.Mat) error {
	w, h := c.config.Width, c.config.Height
	if w > 0 && h > 0 && (m.Cols() != w || m.Rows() != h) {
		gocv.Resize(*m, m, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	}
	if c.config.Mirror {
		gocv.Flip(*m, m, 1)
	}
	if k := c.config.Blur; k > 1 {
		if k%2 == 0 {
			k++
		}
		gocv.GaussianBlur(*m, m, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	}
	if m.Channels() < 3 {
		return fmt.Errorf("camera %q: expected 3 channels, got %d", c.config.Device, m.Channels())
	}
	return nil
}

// Close releases the capture device and frame buffers.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame.Close()
	c.prev.Close()
	c.diff.Close()
	return c.cap.Close()
}

// Diff is a difference image backed by an OpenCV matrix (BGR order; the
// channel order does not matter for averaging).
type Diff struct {
	mat gocv.Mat
}

// NewDiff wraps m. The caller keeps ownership of m.
func NewDiff(m gocv.Mat) *Diff {
	return &Diff{mat: m}
}

func (d *Diff) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.mat.Cols(), d.mat.Rows())
}

func (d *Diff) ChannelMeans(r image.Rectangle) [3]float64 {
	if r.Empty() || !r.In(d.Bounds()) {
		panic(fmt.Sprintf("camera: region %v outside image bounds %v", r, d.Bounds()))
	}
	roi := d.mat.Region(r)
	defer roi.Close()
	s := roi.Mean()
	return [3]float64{s.Val1, s.Val2, s.Val3}
}
