package liveset

import (
	"fmt"
	"strings"

	"github.com/grovetools/lombridge/pkg/lom"
)

// Device is an instrument or effect on a track.
type Device struct {
	object

	Title      string
	ClassName  string
	Active     bool
	Parameters []*DeviceParameter
}

// NewDevice builds a device whose first parameter is the on/off switch.
func NewDevice(name, className string, params ...*DeviceParameter) *Device {
	d := &Device{object: newObject("Device"), Title: name, ClassName: className, Active: true}
	d.Parameters = append([]*DeviceParameter{NewParameter("Device On", 0, 1, 1)}, params...)

	d.prop("name", func() interface{} { return d.Title }, setString("name", &d.Title))
	d.prop("class_name", func() interface{} { return d.ClassName }, nil)
	d.prop("is_active", func() interface{} { return d.Active }, nil)
	d.collection("parameters", func() []interface{} { return nodes(d.Parameters) })
	return d
}

// Name implements lom.Named.
func (d *Device) Name() string { return d.Title }

func (d *Device) String() string { return fmt.Sprintf("Device(%q)", d.Title) }

// FindParameter returns the first parameter whose name contains fragment,
// compared case-insensitively.
func (d *Device) FindParameter(fragment string) *DeviceParameter {
	needle := strings.ToLower(fragment)
	for _, p := range d.Parameters {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			return p
		}
	}
	return nil
}

// DeviceParameter is a bounded automatable value.
type DeviceParameter struct {
	object

	Title     string
	Min       float64
	Max       float64
	Value     float64
	Quantized bool
}

// NewParameter returns a parameter with the given range and initial value.
func NewParameter(name string, min, max, value float64) *DeviceParameter {
	p := &DeviceParameter{object: newObject("DeviceParameter"), Title: name, Min: min, Max: max, Value: value}
	p.prop("name", func() interface{} { return p.Title }, nil)
	p.prop("min", func() interface{} { return p.Min }, nil)
	p.prop("max", func() interface{} { return p.Max }, nil)
	p.prop("is_quantized", func() interface{} { return p.Quantized }, nil)
	p.prop("value", func() interface{} { return p.Value }, func(v interface{}) error {
		f, ok := v.(float64)
		if !ok {
			return lom.InvalidValue(p.Title, v)
		}
		if f < p.Min || f > p.Max {
			return fmt.Errorf("value %v outside [%v, %v] for %q", f, p.Min, p.Max, p.Title)
		}
		p.Value = f
		return nil
	})
	p.bound("value", func() (float64, float64) { return p.Min, p.Max })
	return p
}

// Name implements lom.Named.
func (p *DeviceParameter) Name() string { return p.Title }

func (p *DeviceParameter) String() string {
	return fmt.Sprintf("%s: %.3f", p.Title, p.Value)
}
