package parser

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const feedbackSchemaJSON = `{
  "type": "object",
  "required": ["overallScore", "strengths", "weaknesses", "feedback", "inlineHighlights"],
  "properties": {
    "overallScore": {"type": "number"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "feedback": {"type": "string"},
    "inlineHighlights": {"type": "array"},
    "continuityNotes": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

const summarySchemaJSON = `{
  "type": "object",
  "required": ["summary", "keyPoints", "entities"],
  "properties": {
    "summary": {"type": "string"},
    "keyPoints": {"type": "array", "items": {"type": "string"}},
    "entities": {
      "type": "object",
      "required": ["characters"],
      "properties": {
        "characters": {"type": "array", "items": {"type": "string"}},
        "places": {"type": "array", "items": {"type": "string"}},
        "events": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

var (
	feedbackSchema = mustCompile("developmental_feedback.json", feedbackSchemaJSON)
	summarySchema  = mustCompile("chapter_summary.json", summarySchemaJSON)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("failed to load schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema %s: %v", name, err))
	}
	return schema
}
