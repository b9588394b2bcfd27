package capture

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ScaledSize returns the size of a cols x rows frame scaled to width,
// keeping the aspect ratio. A non-positive width keeps the original size.
func ScaledSize(cols, rows, width int) image.Point {
	if width <= 0 || cols <= 0 {
		return image.Pt(cols, rows)
	}
	height := (rows*width + cols/2) / cols
	if height < 1 {
		height = 1
	}
	return image.Pt(width, height)
}

// Resize returns a copy of frame scaled to width. The caller closes it.
func Resize(frame *gocv.Mat, width int) (gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return gocv.NewMat(), errors.New("resize empty frame")
	}

	size := ScaledSize(frame.Cols(), frame.Rows(), width)
	if size.X == frame.Cols() && size.Y == frame.Rows() {
		return frame.Clone(), nil
	}

	dst := gocv.NewMat()
	gocv.Resize(*frame, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst, nil
}

// EncodeJPEG encodes frame as a JPEG image.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("encode empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
