package meta

import "gopkg.in/yaml.v3"

var (
	_ yaml.Marshaler = Value{}
	_ yaml.Marshaler = Map{}
)

// MarshalYAML renders v as plain YAML data.
func (v Value) MarshalYAML() (interface{}, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	return v.ToAny(), nil
}

func (m Map) MarshalYAML() (interface{}, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m.ToAny(), nil
}
