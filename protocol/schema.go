package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Catalog 全部线上消息，按消息类型列出，仅用于生成 schema
type Catalog struct {
	Welcome   Welcome   `json:"welcome"`
	Input     Input     `json:"input"`
	Chat      Chat      `json:"chat"`
	ChatRelay ChatRelay `json:"chatRelay"`
	State     State     `json:"state"`
}

// Schema 线上消息的 JSON Schema（JSON 编解码视角）
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	s := reflector.Reflect(new(Catalog))
	s.Title = "tickhost wire messages"
	s.Description = "Payloads carried in the p field of {t, p} envelopes, keyed by t"
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}
