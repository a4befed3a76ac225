package expression

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// evalHash validates a hex color literal and normalizes it in hex mode.
func (e *Evaluator) evalHash(h *Hash) (Node, error) {
	digits := strings.TrimPrefix(h.Text, "#")
	switch len(digits) {
	case 3, 4, 6, 8:
	default:
		return nil, evalErrorf("%s is not a hex color", h.Text)
	}
	for _, ch := range digits {
		if !isHexDigit(ch) {
			return nil, evalErrorf("%s is not a hex color", h.Text)
		}
	}

	if e.colorFormat != ColorHex {
		return h, nil
	}
	if len(digits) == 3 || len(digits) == 6 {
		c, err := colorful.Hex(h.Text)
		if err != nil {
			return nil, evalErrorf("%s is not a hex color: %v", h.Text, err)
		}
		return &Hash{Text: c.Hex()}, nil
	}
	return &Hash{Text: strings.ToLower(h.Text)}, nil
}

// evalColor evaluates hsl(), hsla(), rgb() and rgba().
func (e *Evaluator) evalColor(fn *Func, r Resolver) (Node, error) {
	args, err := e.evalArgs(fn.Args, r)
	if err != nil {
		return nil, err
	}
	if len(args) != 3 && len(args) != 4 {
		return nil, evalErrorf("%s() expects 3 or 4 arguments, got %d", fn.Name, len(args))
	}

	nums := make([]*Number, len(args))
	for i, arg := range args {
		num, ok := arg.(*Number)
		if !ok {
			return nil, evalErrorf("%s() argument %d is %q, not a number", fn.Name, i+1, Format(arg))
		}
		nums[i] = num
	}

	var c colorful.Color
	if fn.Name == FuncHSL || fn.Name == FuncHSLA {
		c, err = hslColor(fn.Name, nums)
	} else {
		c, err = rgbColor(fn.Name, nums)
	}
	if err != nil {
		return nil, err
	}

	alpha := 1.0
	if len(nums) == 4 {
		alpha, err = alphaValue(fn.Name, nums[3])
		if err != nil {
			return nil, err
		}
	}

	if e.colorFormat != ColorHex {
		out := make([]Node, len(nums))
		for i, n := range nums {
			out[i] = n
		}
		return &Func{Name: fn.Name, Args: out}, nil
	}

	c = c.Clamped()
	if alpha >= 1 {
		return &Hash{Text: c.Hex()}, nil
	}
	red, green, blue := c.RGB255()
	return &Func{Name: FuncRGBA, Args: []Node{
		NewNumber(float64(red), ""),
		NewNumber(float64(green), ""),
		NewNumber(float64(blue), ""),
		NewNumber(roundTo(alpha, 3), ""),
	}}, nil
}

// hslColor converts hue, saturation and lightness arguments.
func hslColor(name string, nums []*Number) (colorful.Color, error) {
	hue, err := hueDegrees(name, nums[0])
	if err != nil {
		return colorful.Color{}, err
	}
	sat, err := fraction(name, "saturation", nums[1])
	if err != nil {
		return colorful.Color{}, err
	}
	light, err := fraction(name, "lightness", nums[2])
	if err != nil {
		return colorful.Color{}, err
	}
	return colorful.Hsl(hue, sat, light), nil
}

// rgbColor converts red, green and blue channel arguments.
func rgbColor(name string, nums []*Number) (colorful.Color, error) {
	var channels [3]float64
	for i := 0; i < 3; i++ {
		switch nums[i].Unit {
		case "":
			channels[i] = nums[i].Value / 255
		case "%":
			channels[i] = nums[i].Value / 100
		default:
			return colorful.Color{}, evalErrorf("%s() channel %s must be a number or percentage", name, Format(nums[i]))
		}
	}
	return colorful.Color{R: channels[0], G: channels[1], B: channels[2]}, nil
}

// hueDegrees converts a hue angle to degrees in [0, 360).
func hueDegrees(name string, n *Number) (float64, error) {
	var deg float64
	switch n.Unit {
	case "", "deg":
		deg = n.Value
	case "turn":
		deg = n.Value * 360
	case "grad":
		deg = n.Value * 0.9
	case "rad":
		deg = n.Value * 180 / math.Pi
	default:
		return 0, evalErrorf("%s() hue %s must be an angle", name, Format(n))
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg, nil
}

// fraction converts a percentage (or bare 0-100 number) to [0, 1].
func fraction(name, component string, n *Number) (float64, error) {
	if n.Unit != "%" && n.Unit != "" {
		return 0, evalErrorf("%s() %s %s must be a percentage", name, component, Format(n))
	}
	return clamp01(n.Value / 100), nil
}

// alphaValue converts an alpha argument to [0, 1].
func alphaValue(name string, n *Number) (float64, error) {
	switch n.Unit {
	case "":
		return clamp01(n.Value), nil
	case "%":
		return clamp01(n.Value / 100), nil
	default:
		return 0, evalErrorf("%s() alpha %s must be a number or percentage", name, Format(n))
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
