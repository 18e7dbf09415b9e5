package runtime

import (
	"fmt"

	"github.com/loomworks/weft/pkg/domain"
)

// buildInstruction composes the natural-language instruction forwarded to
// the agent backend when a node is dispatched. Types without a handler
// return domain.ErrNotImplemented and fail immediately.
func buildInstruction(node domain.Node) (string, error) {
	switch cfg := node.Config.(type) {
	case domain.WebSummarizerConfig:
		return fmt.Sprintf("Please visit %s and provide a concise summary of its content.", cfg.URL), nil

	case domain.PromptConfig:
		if cfg.ModelName != "" {
			return fmt.Sprintf("[model: %s] %s", cfg.ModelName, cfg.PromptText), nil
		}
		return cfg.PromptText, nil

	case domain.AgentCallConfig:
		instr := cfg.PromptText
		if cfg.ModelName != "" {
			instr = fmt.Sprintf("[model: %s] %s", cfg.ModelName, instr)
		}
		if cfg.BeepEmotion != "" {
			instr = fmt.Sprintf("%s (respond with emotion: %s)", instr, cfg.BeepEmotion)
		}
		return instr, nil
	}

	return "", fmt.Errorf("%w: %s", domain.ErrNotImplemented, node.Type)
}
