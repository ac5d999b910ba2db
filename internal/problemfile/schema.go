package problemfile

import (
	"fmt"
	"strings"
)

// yamlProblem is the on-disk problem layout.
//
//	name: toy
//	types:
//	  - name: T
//	fluents:
//	  - name: on
//	    params: ["x - T"]
//	objects: ["a - T", "b - T"]
//	actions:
//	  - name: flip
//	    params: ["x - T"]
//	    effects:
//	      - fluent: (on ?x)
//	      - fluent: (on a)
//	        value: false
//	init: ["(on a)"]
//	goals: ["(on b)"]
type yamlProblem struct {
	Name    string        `yaml:"name"`
	Types   []yamlType    `yaml:"types,omitempty"`
	Fluents []yamlFluent  `yaml:"fluents,omitempty"`
	Objects []yamlTyped   `yaml:"objects,omitempty"`
	Actions []yamlAction  `yaml:"actions,omitempty"`
	Init    []yamlInitial `yaml:"init,omitempty"`
	Goals   []string      `yaml:"goals,omitempty"`
}

type yamlType struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
}

// yamlTyped is a "name - type" pair, written either as that string or as a
// {name, type} mapping.
type yamlTyped struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// UnmarshalYAML implements custom YAML unmarshaling for typed names
func (t *yamlTyped) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		name, typ, ok := strings.Cut(str, " - ")
		if !ok {
			return fmt.Errorf("%q: expected \"name - type\"", str)
		}
		t.Name, t.Type = strings.TrimSpace(name), strings.TrimSpace(typ)
		return nil
	}

	type rawTyped yamlTyped
	var raw rawTyped
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*t = yamlTyped(raw)
	return nil
}

type yamlFluent struct {
	Name   string      `yaml:"name"`
	Type   string      `yaml:"type,omitempty"` // bool (default), int, real
	Params []yamlTyped `yaml:"params,omitempty"`
}

type yamlAction struct {
	Name          string       `yaml:"name"`
	Params        []yamlTyped  `yaml:"params,omitempty"`
	Preconditions []string     `yaml:"preconditions,omitempty"`
	Effects       []yamlEffect `yaml:"effects,omitempty"`
}

type yamlEffect struct {
	Fluent    string `yaml:"fluent"`
	Value     string `yaml:"value,omitempty"` // expression, default true
	Condition string `yaml:"condition,omitempty"`
}

// yamlInitial is an initial assignment, written as a bare fluent expression
// (value true) or as a {fluent, value} mapping.
type yamlInitial struct {
	Fluent string `yaml:"fluent"`
	Value  string `yaml:"value,omitempty"`
}

// UnmarshalYAML implements custom YAML unmarshaling for initial values
func (i *yamlInitial) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		i.Fluent = str
		return nil
	}

	type rawInitial yamlInitial
	var raw rawInitial
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*i = yamlInitial(raw)
	return nil
}
