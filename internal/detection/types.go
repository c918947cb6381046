package detection

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/eleven-am/shelfscan/internal/shared"
)

type Domain string

const (
	DomainProducts Domain = "products"
	DomainFruits   Domain = "fruits"
)

var Domains = []Domain{DomainProducts, DomainFruits}

func (d Domain) String() string {
	return string(d)
}

func ParseDomain(value string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "products", "product":
		return DomainProducts, nil
	case "fruits", "fruit", "fruit_veg", "fruits_veg":
		return DomainFruits, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownDomain, value)
	}
}

// Box is an axis-aligned rectangle in pixel coordinates of the normalized frame.
type Box struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *Box) UnmarshalJSON(data []byte) error {
	var coords [4]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("box: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

type Detection struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`

	// missing names a field a remote detector left out of the detection.
	missing string
}

type ValidationError struct {
	Class  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Class == "" {
		return "invalid detection: " + e.Reason
	}
	return fmt.Sprintf("invalid detection %q: %s", e.Class, e.Reason)
}

func (d Detection) Validate() error {
	if d.missing != "" {
		return &ValidationError{Class: d.Class, Reason: "missing " + d.missing}
	}
	if strings.TrimSpace(d.Class) == "" {
		return &ValidationError{Reason: "empty class"}
	}
	if math.IsNaN(d.Confidence) || d.Confidence < 0 || d.Confidence > 1 {
		return &ValidationError{Class: d.Class, Reason: fmt.Sprintf("confidence %v outside [0,1]", d.Confidence)}
	}
	for _, v := range []float64{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Class: d.Class, Reason: "non-finite box coordinate"}
		}
	}
	if d.Box.X2 < d.Box.X1 || d.Box.Y2 < d.Box.Y1 {
		return &ValidationError{Class: d.Class, Reason: "inverted box"}
	}
	return nil
}
