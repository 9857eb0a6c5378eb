package assistant

import (
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

const summarySchema = `{
  "type": "object",
  "required": ["points"],
  "properties": {
    "points": {"type": "array", "minItems": 1, "maxItems": 8, "items": {"type": "string", "minLength": 1}},
    "sentiment": {"enum": ["positive", "neutral", "negative"]},
    "next_step": {"type": "string"}
  }
}`

const repliesSchema = `{
  "type": "object",
  "required": ["suggestions"],
  "properties": {
    "suggestions": {"type": "array", "minItems": 1, "maxItems": 5, "items": {"type": "string", "minLength": 1}}
  }
}`

const classifySchema = `{
  "type": "object",
  "required": ["priority", "ticket_type"],
  "properties": {
    "priority": {"enum": ["P1", "P2", "P3", "P4"]},
    "ticket_type": {"enum": ["support", "sales", "collection"]},
    "category": {"type": "string"},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

// contracts holds the compiled response schema of every task.
type contracts struct {
	summary  *js.Schema
	replies  *js.Schema
	classify *js.Schema
}

func compileContracts() contracts {
	return contracts{
		summary:  js.MustCompileString("mem://assistant/summary.json", summarySchema),
		replies:  js.MustCompileString("mem://assistant/replies.json", repliesSchema),
		classify: js.MustCompileString("mem://assistant/classify.json", classifySchema),
	}
}
