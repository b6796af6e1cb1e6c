package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ActionType string

const ACTION_TYPE_IMMEDIATE ActionType = "Immediate"
const ACTION_TYPE_DELAYED ActionType = "Delayed"

// ParseActionType accepts the type name in any case or its legacy ordinal ("0" delayed, "1" immediate).
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate", "1":
		return ACTION_TYPE_IMMEDIATE, nil
	case "delayed", "0":
		return ACTION_TYPE_DELAYED, nil
	}
	return "", fmt.Errorf("invalid action type %q", s)
}

func (at *ActionType) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Errorf("invalid action type %s", string(data))
	}
	parsed, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*at = parsed
	return nil
}

func (at *ActionType) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseActionType(node.Value)
	if err != nil {
		return err
	}
	*at = parsed
	return nil
}

type TriggerRecord struct {
	Name string `json:"name" yaml:"name"`
}

type RuleRecord struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// ActionRecord is the flattened form of both action variants. The schedule
// fields are only present for delayed actions.
type ActionRecord struct {
	Name           string         `json:"name" yaml:"name"`
	Type           ActionType     `json:"type" yaml:"type"`
	Context        map[string]any `json:"context,omitempty" yaml:"context,omitempty"`
	ScheduledAt    *int64         `json:"scheduledAt,omitempty" yaml:"scheduledAt,omitempty"`
	IntervalMillis *int64         `json:"intervalMillis,omitempty" yaml:"intervalMillis,omitempty"`
	Recurrences    *int           `json:"recurrences,omitempty" yaml:"recurrences,omitempty"`
}

type WorkflowRecord struct {
	Id      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string         `json:"name" yaml:"name"`
	Trigger *TriggerRecord `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	Rules   []RuleRecord   `json:"rules" yaml:"rules"`
	Actions []ActionRecord `json:"actions" yaml:"actions"`
}

// WorkflowDefinitions is the shape of an import file.
type WorkflowDefinitions struct {
	Workflows []WorkflowRecord `json:"workflows" yaml:"workflows"`
}
