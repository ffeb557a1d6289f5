package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// conditionWire mirrors Condition's wire shape, with Value kept as
// json.RawMessage so presence (vs. absence) of the key can be told
// apart from a present-but-null value.
type conditionWire struct {
	Entity      string          `json:"entity,omitempty"`
	EntityAlias string          `json:"entity_alias,omitempty"`
	Op          ConditionOp     `json:"op"`
	Value       json.RawMessage `json:"value,omitempty"`
}

// UnmarshalJSON decodes a Condition, setting HasValue from whether the
// document's "value" key was present at all — distinct from a present
// JSON null, which decodes as HasValue=true, Value=nil.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var w conditionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Entity = w.Entity
	c.EntityAlias = w.EntityAlias
	c.Op = w.Op
	c.HasValue = w.Value != nil
	if c.HasValue {
		if err := json.Unmarshal(w.Value, &c.Value); err != nil {
			return fmt.Errorf("ir: decoding condition value: %w", err)
		}
	}
	return nil
}

// MarshalJSON re-encodes a Condition, omitting "value" entirely when
// HasValue is false rather than emitting a JSON null.
func (c Condition) MarshalJSON() ([]byte, error) {
	w := conditionWire{Entity: c.Entity, EntityAlias: c.EntityAlias, Op: c.Op}
	if c.HasValue {
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	}
	return json.Marshal(w)
}

// filterGroupWire mirrors FilterGroup's two wire shapes: a compound
// `{operator, conditions}` or a bare leaf Condition object — spec.md
// §3.2 represents FilterGroup as a tagged variant with no wrapper key,
// so decoding must inspect which fields are present.
type filterGroupWire struct {
	Operator   BoolOp          `json:"operator,omitempty"`
	Conditions []FilterGroup   `json:"conditions,omitempty"`
	Entity     string          `json:"entity,omitempty"`
	EntityAlias string         `json:"entity_alias,omitempty"`
	Op         ConditionOp     `json:"op,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
}

// UnmarshalJSON decodes a FilterGroup node: presence of "operator"
// means a compound group; otherwise the object is decoded as a leaf
// Condition.
func (f *FilterGroup) UnmarshalJSON(data []byte) error {
	var w filterGroupWire
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&w); err != nil {
		return err
	}
	if w.Operator != "" {
		f.Operator = w.Operator
		f.Conditions = w.Conditions
		f.Leaf = nil
		return nil
	}
	leaf := Condition{Entity: w.Entity, EntityAlias: w.EntityAlias, Op: w.Op, HasValue: w.Value != nil}
	if leaf.HasValue {
		if err := json.Unmarshal(w.Value, &leaf.Value); err != nil {
			return fmt.Errorf("ir: decoding leaf condition value: %w", err)
		}
	}
	f.Leaf = &leaf
	f.Operator = ""
	f.Conditions = nil
	return nil
}

// MarshalJSON re-encodes a FilterGroup as whichever of its two wire
// shapes applies.
func (f FilterGroup) MarshalJSON() ([]byte, error) {
	if f.IsLeaf() {
		return json.Marshal(*f.Leaf)
	}
	return json.Marshal(struct {
		Operator   BoolOp        `json:"operator"`
		Conditions []FilterGroup `json:"conditions"`
	}{f.Operator, f.Conditions})
}
