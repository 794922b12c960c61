package usecase

import (
	"encoding/json"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// Classifier and stage reasoning calls request JSON constrained to a schema.
// The model is not trusted to honor the constraint, so every response is
// validated before use; anything that fails validation is ambiguous output.

func safetyAssessmentSchema() *openapi3.Schema {
	categories := make([]any, 0, len(domain.SafetyCategories))
	for _, c := range domain.SafetyCategories {
		categories = append(categories, string(c))
	}
	schema := openapi3.NewObjectSchema().
		WithProperty("requires_escalation", openapi3.NewBoolSchema()).
		WithProperty("category", openapi3.NewStringSchema().WithEnum(categories...)).
		WithProperty("reasoning", openapi3.NewStringSchema())
	schema.Required = []string{"requires_escalation", "category"}
	return schema
}

func complexityDecisionSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("path", openapi3.NewStringSchema().WithEnum(
			string(domain.PathSimple), string(domain.PathComplex))).
		WithProperty("reasoning", openapi3.NewStringSchema())
	schema.Required = []string{"path"}
	return schema
}

// decodeConstrained parses raw model output as JSON, validates it against
// the schema, and unmarshals it into out. Any failure is
// domain.ErrClassifierAmbiguous; callers map that to their safe default.
func decodeConstrained(operation, raw string, schema *openapi3.Schema, out any) error {
	trimmed := extractJSONObject(raw)
	var value map[string]any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return domain.WrapError(domain.ErrClassifierAmbiguous, operation, err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return domain.WrapError(domain.ErrClassifierAmbiguous, operation, err)
	}
	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return domain.WrapError(domain.ErrClassifierAmbiguous, operation, err)
	}
	return nil
}

// extractJSONObject tolerates models that wrap the object in prose or a
// markdown fence. It returns the outermost braced span, or the input
// unchanged when none is found.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
