package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/loomworks/weft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeID(t *testing.T) {
	id := domain.NewNodeID(domain.NodeTypeWebSummarizer, "Summarize Docs Page")

	assert.True(t, strings.HasPrefix(id, "web-summarizer-summarize-docs-page-"), id)

	// A second ID for the same inputs must differ (salted).
	other := domain.NewNodeID(domain.NodeTypeWebSummarizer, "Summarize Docs Page")
	assert.NotEqual(t, id, other)
}

func TestNewNodeID_EmptyTitle(t *testing.T) {
	id := domain.NewNodeID(domain.NodeTypePrompt, "  !!! ")
	assert.True(t, strings.HasPrefix(id, "prompt-node-"), id)
}

func TestNodeType_Valid(t *testing.T) {
	for _, nt := range domain.NodeTypes() {
		assert.True(t, nt.Valid(), string(nt))
	}
	assert.False(t, domain.NodeType("sorcery").Valid())
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     domain.Config
		wantErr bool
	}{
		{"summarizer missing url", domain.WebSummarizerConfig{}, true},
		{"summarizer ok", domain.WebSummarizerConfig{URL: "https://example.com"}, false},
		{"prompt missing text", domain.PromptConfig{ModelName: "beep"}, true},
		{"prompt ok", domain.PromptConfig{PromptText: "hi"}, false},
		{"agent-call missing text", domain.AgentCallConfig{}, true},
		{"conditional missing expr", domain.ConditionalConfig{}, true},
		{"transform missing logic", domain.DataTransformConfig{}, true},
		{"api-call missing endpoint", domain.APICallConfig{Method: "GET"}, true},
		{"trigger always ok", domain.TriggerConfig{}, false},
		{"wait always ok", domain.WaitConfig{}, false},
		{"custom always ok", domain.CustomConfig{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				var verr *domain.ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	cfg, err := domain.DecodeConfig(domain.NodeTypeWebSummarizer, map[string]any{
		"url": "https://example.com",
	})
	require.NoError(t, err)

	ws, ok := cfg.(domain.WebSummarizerConfig)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", ws.URL)
}

func TestDecodeConfig_CustomKeepsBag(t *testing.T) {
	cfg, err := domain.DecodeConfig(domain.NodeTypeCustom, map[string]any{
		"anything": 42,
	})
	require.NoError(t, err)

	cc, ok := cfg.(domain.CustomConfig)
	require.True(t, ok)
	assert.Equal(t, 42, cc.Params["anything"])
}

func TestDecodeConfig_UnknownType(t *testing.T) {
	_, err := domain.DecodeConfig(domain.NodeType("sorcery"), map[string]any{})
	assert.Error(t, err)
}

func TestNodeJSONRoundTrip(t *testing.T) {
	node := domain.Node{
		ID:    domain.NewNodeID(domain.NodeTypePrompt, "Greeting"),
		Type:  domain.NodeTypePrompt,
		Title: "Greeting",
		Config: domain.PromptConfig{
			PromptText: "Say hello",
			ModelName:  "beep-3",
		},
		Output: &domain.Output{Data: map[string]any{"text": "hello"}},
	}

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded domain.Node
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, node.ID, decoded.ID)
	assert.Equal(t, node.Type, decoded.Type)

	cfg, ok := decoded.Config.(domain.PromptConfig)
	require.True(t, ok, "config should decode into the prompt variant")
	assert.Equal(t, "Say hello", cfg.PromptText)
	assert.Equal(t, "beep-3", cfg.ModelName)
	require.NotNil(t, decoded.Output)
	assert.Equal(t, "hello", decoded.Output.Data["text"])
}

func TestNodeClone_Isolation(t *testing.T) {
	node := domain.Node{
		ID:     "n1",
		Type:   domain.NodeTypeCustom,
		Config: domain.CustomConfig{Params: map[string]any{"k": "v"}},
		Output: &domain.Output{Data: map[string]any{"a": 1}},
	}

	clone := node.Clone()
	clone.Output.Data["a"] = 2
	cc := clone.Config.(domain.CustomConfig)
	cc.Params["k"] = "mutated"

	assert.Equal(t, 1, node.Output.Data["a"])
	assert.Equal(t, "v", node.Config.(domain.CustomConfig).Params["k"])
}
