// Package schema reflects Go types into JSON schemas suitable for
// structured-output completion requests.
package schema

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Generate builds a strict JSON schema for T. Object schemas are tightened
// so every property is required and no additional properties are allowed,
// which is what the OpenAI structured-output endpoint expects.
func Generate[T any]() map[string]interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	s := reflector.Reflect(v)

	b, err := s.MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	tighten(m)
	return m
}

func tighten(s map[string]interface{}) {
	if t, ok := s["type"].(string); ok && t == "object" {
		s["additionalProperties"] = false
		if props, ok := s["properties"].(map[string]interface{}); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			s["required"] = required
			for _, p := range props {
				if pm, ok := p.(map[string]interface{}); ok {
					tighten(pm)
				}
			}
		}
	}
	if items, ok := s["items"].(map[string]interface{}); ok {
		tighten(items)
	}
}
