package collection

// FieldRule describes the validation rule for a single document field
// (spec §4.5 "Schema"): type plus optional required/min/max/enum/pattern
// constraints, compiled into a JSON Schema document for gojsonschema.
type FieldRule struct {
	// Type is one of "string", "number", "boolean", "array", "object".
	Type string

	// Required marks the field as mandatory on the document.
	Required bool

	// Min/Max bound a number's value, or a string/array's length,
	// depending on Type. Nil means unbounded on that side.
	Min *float64
	Max *float64

	// Enum restricts the field to one of a fixed set of values.
	Enum []interface{}

	// Pattern is a regular expression the value must match (strings only).
	Pattern string
}

// compileJSONSchema translates a per-field rule set into a JSON Schema
// document shaped like gojsonschema expects (object type, "properties",
// "required"), matching how bundoc/collection.go feeds a raw schema
// string to gojsonschema.NewSchema.
func compileJSONSchema(rules map[string]FieldRule) map[string]interface{} {
	properties := make(map[string]interface{}, len(rules))
	var required []string

	for field, rule := range rules {
		prop := map[string]interface{}{}
		if rule.Type != "" {
			prop["type"] = rule.Type
		}
		if rule.Enum != nil {
			prop["enum"] = rule.Enum
		}
		if rule.Pattern != "" {
			prop["pattern"] = rule.Pattern
		}
		switch rule.Type {
		case "number":
			if rule.Min != nil {
				prop["minimum"] = *rule.Min
			}
			if rule.Max != nil {
				prop["maximum"] = *rule.Max
			}
		case "string":
			if rule.Min != nil {
				prop["minLength"] = int(*rule.Min)
			}
			if rule.Max != nil {
				prop["maxLength"] = int(*rule.Max)
			}
		case "array":
			if rule.Min != nil {
				prop["minItems"] = int(*rule.Min)
			}
			if rule.Max != nil {
				prop["maxItems"] = int(*rule.Max)
			}
		}
		properties[field] = prop
		if rule.Required {
			required = append(required, field)
		}
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}
