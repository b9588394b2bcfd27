package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// CascadeDetector implements Detector with OpenCV Haar cascades.
type CascadeDetector struct {
	config Config
	face   gocv.CascadeClassifier
	eye    gocv.CascadeClassifier
	mu     sync.Mutex
	closed bool
}

// NewCascadeDetector loads both cascades. Loading failures are returned so
// a misconfigured install fails at startup.
func NewCascadeDetector(config Config) (*CascadeDetector, error) {
	face := gocv.NewCascadeClassifier()
	if !face.Load(config.FaceCascade) {
		face.Close()
		return nil, fmt.Errorf("load face cascade from %s", config.FaceCascade)
	}

	eye := gocv.NewCascadeClassifier()
	if !eye.Load(config.EyeCascade) {
		face.Close()
		eye.Close()
		return nil, fmt.Errorf("load eye cascade from %s", config.EyeCascade)
	}

	return &CascadeDetector{
		config: config,
		face:   face,
		eye:    eye,
	}, nil
}

// Detect converts the frame to grayscale, finds faces and then looks for
// eyes in the upper half of each face. It stops at the first face with
// open eyes.
func (d *CascadeDetector) Detect(frame *gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Result{}, fmt.Errorf("detector closed")
	}
	if frame == nil || frame.Empty() {
		return Result{}, fmt.Errorf("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)

	faces := d.face.DetectMultiScaleWithParams(
		gray,
		d.config.FaceScaleFactor,
		d.config.FaceMinNeighbors,
		0,
		image.Point{},
		image.Point{},
	)

	result := Result{Faces: faces}
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())

	for _, face := range faces {
		roi := UpperHalf(face).Intersect(bounds)
		if roi.Empty() {
			continue
		}

		region := gray.Region(roi)
		eyes := d.eye.DetectMultiScaleWithParams(
			region,
			d.config.EyeScaleFactor,
			d.config.EyeMinNeighbors,
			0,
			d.config.EyeMinSize,
			image.Point{},
		)
		region.Close()

		if len(eyes) >= MinOpenEyes {
			result.EyesOpen = true
			break
		}
	}

	return result, nil
}

// Close releases both cascades.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	errFace := d.face.Close()
	errEye := d.eye.Close()
	if errFace != nil {
		return errFace
	}
	return errEye
}
