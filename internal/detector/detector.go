// Package detector finds faces and open eyes in camera frames.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// MinOpenEyes is how many eye detections a face needs to count as eyes open.
const MinOpenEyes = 2

// Cascade files shipped with OpenCV.
const (
	DefaultFaceCascade = "haarcascade_frontalface_default.xml"
	DefaultEyeCascade  = "haarcascade_eye_tree_eyeglasses.xml"
)

// Result is what a detector found in one frame.
type Result struct {
	// Faces holds the face bounding boxes in frame coordinates.
	Faces []image.Rectangle

	// EyesOpen is true if any face has at least MinOpenEyes eyes in the
	// upper half of its box.
	EyesOpen bool
}

// FacePresent reports whether at least one face was found.
func (r Result) FacePresent() bool {
	return len(r.Faces) > 0
}

// Detector defines the interface for face and eye detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame.
	Detect(frame *gocv.Mat) (Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the cascade files and their detection parameters.
type Config struct {
	FaceCascade string
	EyeCascade  string

	FaceScaleFactor  float64
	FaceMinNeighbors int

	EyeScaleFactor  float64
	EyeMinNeighbors int
	EyeMinSize      image.Point
}

// DefaultConfig returns the tuned cascade parameters.
func DefaultConfig() Config {
	return Config{
		FaceCascade:      DefaultFaceCascade,
		EyeCascade:       DefaultEyeCascade,
		FaceScaleFactor:  1.3,
		FaceMinNeighbors: 5,
		EyeScaleFactor:   1.05,
		EyeMinNeighbors:  6,
		EyeMinSize:       image.Pt(30, 30),
	}
}

// UpperHalf returns the top half of a face box, where the eyes are searched.
func UpperHalf(face image.Rectangle) image.Rectangle {
	return image.Rect(face.Min.X, face.Min.Y, face.Max.X, face.Min.Y+face.Dy()/2)
}
