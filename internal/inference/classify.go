package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lehigh-university-libraries/anatomist/internal/domain"
	"github.com/lehigh-university-libraries/anatomist/internal/models"
	"github.com/lehigh-university-libraries/anatomist/internal/providers"
	"github.com/lehigh-university-libraries/anatomist/internal/sanitize"
)

const organLabelSchema = `{
  "type": "object",
  "properties": {
    "organ": {"type": "string"},
    "labels": {"type": "array", "items": {"type": "string"}}
  }
}`

var labelSchema = compileLabelSchema()

func compileLabelSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("organ_label.json", strings.NewReader(organLabelSchema)); err != nil {
		panic(fmt.Sprintf("add organ label schema: %v", err))
	}
	return compiler.MustCompile("organ_label.json")
}

// ClassifyImage asks the vision model which organ the image shows.
// Any failure yields the unknown label.
func (s *Service) ClassifyImage(ctx context.Context, image []byte) models.OrganLabelResult {
	if len(image) == 0 {
		return models.UnknownLabel()
	}

	out, err := s.complete(ctx, "classify", providers.Request{
		Model:  s.cfg.VisionModel,
		Prompt: classifyPrompt,
		Images: [][]byte{image},
	})
	if err != nil {
		return models.UnknownLabel()
	}

	result, err := ParseOrganLabel(out)
	if err != nil {
		slog.Warn("Discarding vision response", "err", err, "raw", out)
		return models.UnknownLabel()
	}
	return result
}

// ParseOrganLabel extracts and validates the JSON payload of a vision response.
func ParseOrganLabel(raw string) (models.OrganLabelResult, error) {
	payload := sanitize.ExtractStructuredPayload(raw)

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return models.UnknownLabel(), domain.MalformedOutputError("response is not JSON", err)
	}
	if err := labelSchema.Validate(v); err != nil {
		return models.UnknownLabel(), domain.MalformedOutputError("response does not match schema", err)
	}

	var decoded struct {
		Organ  *string  `json:"organ"`
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return models.UnknownLabel(), domain.MalformedOutputError("failed to decode response", err)
	}

	result := models.UnknownLabel()
	if decoded.Organ != nil && strings.TrimSpace(*decoded.Organ) != "" {
		result.Organ = strings.TrimSpace(*decoded.Organ)
	}
	if decoded.Labels != nil {
		result.Labels = decoded.Labels
	}
	return result, nil
}
