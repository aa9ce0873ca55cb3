package handler

import (
	"fmt"
	"strings"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/lom"
)

func (h *Handler) loadDevice(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex     *int   `json:"track_index"`
		DeviceName     string `json:"device_name"`
		InstrumentName string `json:"instrument_name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := h.track(p.TrackIndex)
	if err != nil {
		return nil, err
	}
	raw := p.DeviceName
	if raw == "" {
		raw = p.InstrumentName
	}

	search := h.search.Load()
	name := search.policy.Apply(raw)
	if name == "" {
		return nil, errors.InvalidInput("device_name", "required")
	}

	browser := h.set.Browser()
	found := lom.FindLoadable(browser.Roots(search.deviceRoots), name)
	if found == nil {
		return nil, errors.NotFound("device", name)
	}
	item := found.(*liveset.BrowserItem)

	h.set.Select(t, -1)
	if err := browser.LoadItem(item); err != nil {
		return nil, hostError("load_device", err)
	}
	h.logger.WithField("device", item.Title).WithField("track", t.Title).Debug("Device loaded")
	return "Loaded: " + item.Title, nil
}

func (h *Handler) loadSample(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int   `json:"track_index"`
		ClipIndex  *int   `json:"clip_index"`
		SampleName string `json:"sample_name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := h.track(p.TrackIndex)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(p.SampleName))
	if name == "" {
		return nil, errors.InvalidInput("sample_name", "required")
	}

	browser := h.set.Browser()
	found := lom.FindLoadable(browser.Roots(h.search.Load().sampleRoots), name)
	if found == nil {
		return nil, errors.NotFound("sample", name)
	}
	item := found.(*liveset.BrowserItem)

	row := 0
	if p.ClipIndex != nil {
		row = *p.ClipIndex
	}
	h.set.Select(t, row)
	if err := browser.LoadItem(item); err != nil {
		return nil, hostError("load_sample", err)
	}
	return "Sample loaded: " + item.Title, nil
}

func (h *Handler) deleteDevice(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int   `json:"track_index"`
		DeviceName string `json:"device_name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := h.track(p.TrackIndex)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(p.DeviceName)
	if name == "" {
		return nil, errors.InvalidInput("device_name", "required")
	}

	deleted := 0
	for i := len(t.Devices) - 1; i >= 0; i-- {
		if name == "all" || strings.Contains(strings.ToLower(t.Devices[i].Title), name) {
			if err := t.DeleteDevice(i); err != nil {
				return nil, hostError("delete_device", err)
			}
			deleted++
		}
	}
	if deleted == 0 {
		return nil, errors.NotFound("device", p.DeviceName).WithDetail("track", t.Title)
	}
	return fmt.Sprintf("Deleted %d device(s)", deleted), nil
}

// findParameter returns the first parameter matching paramName on any
// device whose name contains deviceName, both compared case-insensitively.
func findParameter(t *liveset.Track, deviceName, paramName string) *liveset.DeviceParameter {
	dev := strings.ToLower(deviceName)
	for _, d := range t.Devices {
		if !strings.Contains(strings.ToLower(d.Title), dev) {
			continue
		}
		if p := d.FindParameter(paramName); p != nil {
			return p
		}
	}
	return nil
}

func (h *Handler) setDeviceParam(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int     `json:"track_index"`
		DeviceName string   `json:"device_name"`
		ParamName  string   `json:"param_name"`
		Value      *float64 `json:"value"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := h.track(p.TrackIndex)
	if err != nil {
		return nil, err
	}
	if p.Value == nil {
		return nil, errors.InvalidInput("value", "required")
	}
	param := findParameter(t, p.DeviceName, p.ParamName)
	if param == nil {
		return nil, errors.NotFound("parameter", p.DeviceName+"/"+p.ParamName)
	}
	param.Value = lom.Clamp(*p.Value, param.Min, param.Max)
	return fmt.Sprintf("%s set to %g", param.Title, param.Value), nil
}

func (h *Handler) addAutomation(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int   `json:"track_index"`
		ClipIndex  *int   `json:"clip_index"`
		DeviceName string `json:"device_name"`
		ParamName  string `json:"param_name"`
		Points     []struct {
			Time  *float64 `json:"time"`
			Value *float64 `json:"value"`
		} `json:"points"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	c, err := h.clip(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	t, _ := h.track(p.TrackIndex)
	param := findParameter(t, p.DeviceName, p.ParamName)
	if param == nil {
		return nil, errors.NotFound("parameter", p.DeviceName+"/"+p.ParamName)
	}

	env := c.AutomationEnvelope(param)
	env.Clear()
	for _, pt := range p.Points {
		at, norm := 0.0, 0.5
		if pt.Time != nil {
			at = *pt.Time
		}
		if pt.Value != nil {
			norm = *pt.Value
		}
		actual := param.Min + norm*(param.Max-param.Min)
		env.InsertStep(at, lom.Clamp(actual, param.Min, param.Max))
	}
	return fmt.Sprintf("Automation added on %s (%d points)", param.Title, len(env.Events)), nil
}
