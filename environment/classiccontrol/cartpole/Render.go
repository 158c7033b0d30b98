package cartpole

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
)

const (
	frameWidth  = 600
	frameHeight = 400

	cartWidth  = 50.0
	cartHeight = 30.0
	poleLength = 100.0
	trackY     = 300.0
)

// Render draws the Cartpole state described by obs as a single frame.
// The observation must have the layout [x, xDot, theta, thetaDot].
func Render(obs mat.Vector) (image.Image, error) {
	if obs.Len() != ObservationDims {
		return nil, fmt.Errorf("render: expected %d state features, got %d",
			ObservationDims, obs.Len())
	}

	x := obs.AtVec(0)
	theta := obs.AtVec(2)

	dc := gg.NewContext(frameWidth, frameHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Track
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(0, trackY, frameWidth, trackY)
	dc.Stroke()

	// World x in [-PositionBounds, PositionBounds] maps onto the frame
	scale := float64(frameWidth) / (2 * PositionBounds)
	cartX := float64(frameWidth)/2 + x*scale

	// Cart
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawRectangle(cartX-cartWidth/2, trackY-cartHeight, cartWidth,
		cartHeight)
	dc.Fill()

	// Pole, drawn from the top of the cart. Angle 0 points straight up.
	pivotX := cartX
	pivotY := trackY - cartHeight
	tipX := pivotX + poleLength*math.Sin(theta)
	tipY := pivotY - poleLength*math.Cos(theta)

	dc.SetRGB(0.76, 0.47, 0.33)
	dc.SetLineWidth(6)
	dc.DrawLine(pivotX, pivotY, tipX, tipY)
	dc.Stroke()

	// Axle
	dc.SetRGB(0.5, 0.6, 0.8)
	dc.DrawCircle(pivotX, pivotY, 4)
	dc.Fill()

	return dc.Image(), nil
}

// SaveFrame renders the Cartpole state described by obs and saves it
// as a PNG at path
func SaveFrame(obs mat.Vector, path string) error {
	img, err := Render(obs)
	if err != nil {
		return fmt.Errorf("saveFrame: %v", err)
	}

	return gg.SavePNG(path, img)
}
