package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the tagged union of per-type node configuration. Each node type
// owns a variant carrying only its own typed fields, so the runtime never
// probes an open key/value bag for required keys.
type Config interface {
	// Kind reports the node type this variant configures.
	Kind() NodeType

	// Validate checks the presence of the fields required before the node
	// may be dispatched. It returns a *ValidationError on refusal.
	Validate() error

	clone() Config
}

// PromptConfig configures a prompt node.
type PromptConfig struct {
	PromptText  string `json:"promptText,omitempty" yaml:"promptText,omitempty" mapstructure:"promptText"`
	ModelName   string `json:"modelName,omitempty" yaml:"modelName,omitempty" mapstructure:"modelName"`
	BeepEmotion string `json:"beepEmotion,omitempty" yaml:"beepEmotion,omitempty" mapstructure:"beepEmotion"`
}

func (PromptConfig) Kind() NodeType { return NodeTypePrompt }

func (c PromptConfig) Validate() error {
	if c.PromptText == "" {
		return &ValidationError{Field: "promptText", Reason: "prompt text is required"}
	}
	return nil
}

func (c PromptConfig) clone() Config { return c }

// AgentCallConfig configures an agent-call node. It shares the prompt field
// set but is a distinct variant so the two types can diverge.
type AgentCallConfig struct {
	PromptText  string `json:"promptText,omitempty" yaml:"promptText,omitempty" mapstructure:"promptText"`
	ModelName   string `json:"modelName,omitempty" yaml:"modelName,omitempty" mapstructure:"modelName"`
	BeepEmotion string `json:"beepEmotion,omitempty" yaml:"beepEmotion,omitempty" mapstructure:"beepEmotion"`
}

func (AgentCallConfig) Kind() NodeType { return NodeTypeAgentCall }

func (c AgentCallConfig) Validate() error {
	if c.PromptText == "" {
		return &ValidationError{Field: "promptText", Reason: "prompt text is required"}
	}
	return nil
}

func (c AgentCallConfig) clone() Config { return c }

// ConditionalConfig configures a conditional node.
type ConditionalConfig struct {
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty" mapstructure:"condition"`
}

func (ConditionalConfig) Kind() NodeType { return NodeTypeConditional }

func (c ConditionalConfig) Validate() error {
	if c.Condition == "" {
		return &ValidationError{Field: "condition", Reason: "condition expression is required"}
	}
	return nil
}

func (c ConditionalConfig) clone() Config { return c }

// WebSummarizerConfig configures a web-summarizer node.
type WebSummarizerConfig struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`
}

func (WebSummarizerConfig) Kind() NodeType { return NodeTypeWebSummarizer }

func (c WebSummarizerConfig) Validate() error {
	if c.URL == "" {
		return &ValidationError{Field: "url", Reason: "url is required"}
	}
	return nil
}

func (c WebSummarizerConfig) clone() Config { return c }

// DataTransformConfig configures a data-transform node.
type DataTransformConfig struct {
	TransformationLogic string `json:"transformationLogic,omitempty" yaml:"transformationLogic,omitempty" mapstructure:"transformationLogic"`
}

func (DataTransformConfig) Kind() NodeType { return NodeTypeDataTransform }

func (c DataTransformConfig) Validate() error {
	if c.TransformationLogic == "" {
		return &ValidationError{Field: "transformationLogic", Reason: "transformation logic is required"}
	}
	return nil
}

func (c DataTransformConfig) clone() Config { return c }

// APICallConfig configures an api-call node.
type APICallConfig struct {
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Method   string `json:"method,omitempty" yaml:"method,omitempty" mapstructure:"method"`
}

func (APICallConfig) Kind() NodeType { return NodeTypeAPICall }

func (c APICallConfig) Validate() error {
	if c.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Reason: "endpoint is required"}
	}
	return nil
}

func (c APICallConfig) clone() Config { return c }

// TriggerConfig configures a trigger node.
type TriggerConfig struct {
	Event string `json:"event,omitempty" yaml:"event,omitempty" mapstructure:"event"`
}

func (TriggerConfig) Kind() NodeType { return NodeTypeTrigger }

func (TriggerConfig) Validate() error { return nil }

func (c TriggerConfig) clone() Config { return c }

// WaitConfig configures a wait node.
type WaitConfig struct {
	DurationSeconds int `json:"durationSeconds,omitempty" yaml:"durationSeconds,omitempty" mapstructure:"durationSeconds"`
}

func (WaitConfig) Kind() NodeType { return NodeTypeWait }

func (WaitConfig) Validate() error { return nil }

func (c WaitConfig) clone() Config { return c }

// CustomConfig configures a custom node. It is the one deliberately open
// variant, for host-defined extensions.
type CustomConfig struct {
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

func (CustomConfig) Kind() NodeType { return NodeTypeCustom }

func (CustomConfig) Validate() error { return nil }

func (c CustomConfig) clone() Config {
	if c.Params == nil {
		return c
	}
	out := CustomConfig{Params: make(map[string]any, len(c.Params))}
	for k, v := range c.Params {
		out.Params[k] = v
	}
	return out
}

// ConfigFor returns the zero value of the config variant for a node type.
func ConfigFor(t NodeType) (Config, error) {
	switch t {
	case NodeTypePrompt:
		return PromptConfig{}, nil
	case NodeTypeAgentCall:
		return AgentCallConfig{}, nil
	case NodeTypeConditional:
		return ConditionalConfig{}, nil
	case NodeTypeWebSummarizer:
		return WebSummarizerConfig{}, nil
	case NodeTypeDataTransform:
		return DataTransformConfig{}, nil
	case NodeTypeAPICall:
		return APICallConfig{}, nil
	case NodeTypeTrigger:
		return TriggerConfig{}, nil
	case NodeTypeWait:
		return WaitConfig{}, nil
	case NodeTypeCustom:
		return CustomConfig{}, nil
	}
	return nil, fmt.Errorf("unknown node type %q", t)
}

// DecodeConfig converts a loose key/value map (template files, PATCH bodies)
// into the typed variant for the given node type.
func DecodeConfig(t NodeType, raw map[string]any) (Config, error) {
	base, err := ConfigFor(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return base, nil
	}

	switch t {
	case NodeTypePrompt:
		var c PromptConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeAgentCall:
		var c AgentCallConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeConditional:
		var c ConditionalConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeWebSummarizer:
		var c WebSummarizerConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeDataTransform:
		var c DataTransformConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeAPICall:
		var c APICallConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeTrigger:
		var c TriggerConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeWait:
		var c WaitConfig
		err = decodeLoose(raw, &c)
		return c, err
	case NodeTypeCustom:
		// Custom nodes keep the whole bag.
		out := CustomConfig{Params: make(map[string]any, len(raw))}
		for k, v := range raw {
			out.Params[k] = v
		}
		return out, nil
	}
	return base, nil
}

func decodeLoose(raw map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// nodeJSON is the wire shadow of Node: Config round-trips as raw JSON keyed
// by the node type.
type nodeJSON struct {
	ID          string          `json:"id"`
	Type        NodeType        `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
	Output      *Output         `json:"output,omitempty"`
}

// UnmarshalJSON decodes the config payload into the variant selected by the
// node's type, so snapshots restore typed configs.
func (n *Node) UnmarshalJSON(data []byte) error {
	var shadow nodeJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	n.ID = shadow.ID
	n.Type = shadow.Type
	n.Title = shadow.Title
	n.Description = shadow.Description
	n.Output = shadow.Output
	n.Config = nil

	if len(shadow.Config) == 0 || string(shadow.Config) == "null" {
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(shadow.Config, &raw); err != nil {
		return fmt.Errorf("node %s: %w", shadow.ID, err)
	}
	cfg, err := DecodeConfig(shadow.Type, raw)
	if err != nil {
		return fmt.Errorf("node %s: %w", shadow.ID, err)
	}
	n.Config = cfg
	return nil
}
