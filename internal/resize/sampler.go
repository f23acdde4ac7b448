package resize

import (
	"math"

	"github.com/disintegration/imaging"
)

// Sampler selects the resampling kernel
type Sampler int

const (
	Bicubic Sampler = iota
	Box
	CatmullRom
	Hermite
	Lanczos2
	Lanczos3
	Lanczos5
	Lanczos8
	MitchellNetravali
	NearestNeighbor
	Robidoux
	RobidouxSharp
	Spline
	Triangle
	Welch
)

// Samplers returns every sampler in declaration order
func Samplers() []Sampler {
	return []Sampler{
		Bicubic, Box, CatmullRom, Hermite, Lanczos2, Lanczos3, Lanczos5, Lanczos8,
		MitchellNetravali, NearestNeighbor, Robidoux, RobidouxSharp, Spline, Triangle, Welch,
	}
}

var samplerNames = [...]string{
	"Bicubic", "Box", "CatmullRom", "Hermite", "Lanczos2", "Lanczos3", "Lanczos5", "Lanczos8",
	"MitchellNetravali", "NearestNeighbor", "Robidoux", "RobidouxSharp", "Spline", "Triangle", "Welch",
}

func (s Sampler) String() string {
	if s >= 0 && int(s) < len(samplerNames) {
		return samplerNames[s]
	}
	return "Sampler(?)"
}

// Filter returns the imaging filter for the sampler. Kernels imaging does
// not ship are built from the same cubic and sinc families it uses.
func (s Sampler) Filter() imaging.ResampleFilter {
	switch s {
	case Box:
		return imaging.Box
	case CatmullRom:
		return imaging.CatmullRom
	case Hermite:
		return imaging.Hermite
	case Lanczos2:
		return lanczos(2)
	case Lanczos3:
		return imaging.Lanczos
	case Lanczos5:
		return lanczos(5)
	case Lanczos8:
		return lanczos(8)
	case MitchellNetravali:
		return imaging.MitchellNetravali
	case NearestNeighbor:
		return imaging.NearestNeighbor
	case Robidoux:
		return cubic(0.37821575509399867, 0.31089212245300067)
	case RobidouxSharp:
		return cubic(0.2620145123990142, 0.3689927438004929)
	case Spline:
		return imaging.BSpline
	case Triangle:
		return imaging.Linear
	case Welch:
		return imaging.Welch
	default:
		return cubic(0, 0.5)
	}
}

// cubic is the two-parameter BC-spline family
func cubic(b, c float64) imaging.ResampleFilter {
	return imaging.ResampleFilter{
		Support: 2.0,
		Kernel: func(x float64) float64 {
			x = math.Abs(x)
			switch {
			case x < 1.0:
				return ((12-9*b-6*c)*x*x*x + (-18+12*b+6*c)*x*x + (6 - 2*b)) / 6
			case x < 2.0:
				return ((-b-6*c)*x*x*x + (6*b+30*c)*x*x + (-12*b-48*c)*x + (8*b + 24*c)) / 6
			}
			return 0
		},
	}
}

func lanczos(a float64) imaging.ResampleFilter {
	return imaging.ResampleFilter{
		Support: a,
		Kernel: func(x float64) float64 {
			x = math.Abs(x)
			if x < a {
				return sinc(x) * sinc(x/a)
			}
			return 0
		},
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}
