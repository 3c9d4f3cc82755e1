package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"example.com/fitscan/internal/fit"
)

// Overrides is a caller-supplied profile extension loaded from YAML. Entries
// layer on top of the built-in profile: names replace default names,
// scale/offset declarations replace default transforms.
type Overrides struct {
	Messages map[string]MessageOverride `yaml:"messages"`

	resolved map[uint16]map[uint8]FieldOverride
}

// MessageOverride holds per-field overrides for one message kind. The map
// key under "messages" is any selector ResolveMessageType accepts.
type MessageOverride struct {
	Fields map[uint8]FieldOverride `yaml:"fields"`
}

// FieldOverride renames a field and optionally declares its scale/offset.
type FieldOverride struct {
	Name   string  `yaml:"name"`
	Scale  float64 `yaml:"scale"`
	Offset float64 `yaml:"offset"`
}

// LoadOverrides reads and resolves a YAML override file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}
	if err := o.resolve(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *Overrides) resolve() error {
	o.resolved = make(map[uint16]map[uint8]FieldOverride, len(o.Messages))
	for selector, msg := range o.Messages {
		num, err := ResolveMessageType(selector)
		if err != nil {
			return fmt.Errorf("overrides: %w", err)
		}
		fields := make(map[uint8]FieldOverride, len(msg.Fields))
		for fieldNum, fo := range msg.Fields {
			fields[fieldNum] = fo
		}
		o.resolved[num] = fields
	}
	return nil
}

// ColumnMapping merges the built-in mapping for msgNum with the overrides,
// override names winning.
func (o *Overrides) ColumnMapping(msgNum uint16) map[string]string {
	out := ColumnMapping(msgNum)
	if out == nil {
		out = make(map[string]string)
	}
	if o == nil {
		return out
	}
	for fieldNum, fo := range o.resolved[msgNum] {
		if fo.Name != "" {
			out[fmt.Sprintf("field_%d", fieldNum)] = fo.Name
		}
	}
	return out
}

// Scale resolves scale/offset with overrides layered over the built-in
// profile. Satisfies fit.ScaleLookup.
func (o *Overrides) Scale(msgNum uint16, fieldNum uint8) (fit.ScaleOffset, bool) {
	if o != nil {
		if fo, ok := o.resolved[msgNum][fieldNum]; ok && fo.Scale != 0 {
			return fit.ScaleOffset{Scale: fo.Scale, Offset: fo.Offset}, true
		}
	}
	return Scale(msgNum, fieldNum)
}
