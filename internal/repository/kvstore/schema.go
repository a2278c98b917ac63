package kvstore

import (
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema versions of stored records.
//
// Version 0 is the unversioned format written by the original browser app:
// a bare object/array with `desc`, `reminder`, `reminderValue` and
// `imageData` fields. Version 1 wraps the record in {"schema":1,"data":...}
// and uses the field names of the model package.
const (
	schemaLegacy  = 0
	schemaCurrent = 1
)

const userV1Schema = `{
	"type": "object",
	"required": ["name", "email", "password", "gender"],
	"properties": {
		"name":        {"type": "string"},
		"email":       {"type": "string", "minLength": 1},
		"birth":       {"type": "string"},
		"gender":      {"enum": ["male", "female", "other"]},
		"password":    {"type": "string"},
		"avatarImage": {"type": "string"}
	}
}`

const userLegacySchema = `{
	"type": "object",
	"required": ["email", "password"],
	"properties": {
		"name":      {"type": ["string", "null"]},
		"email":     {"type": "string", "minLength": 1},
		"birth":     {"type": ["string", "null"]},
		"gender":    {"type": ["string", "null"]},
		"password":  {"type": "string"},
		"imageData": {"type": ["string", "null"]}
	}
}`

const tasksV1Schema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "title", "done", "createdAt"],
		"properties": {
			"id":                    {"type": "string", "minLength": 1},
			"title":                 {"type": "string", "minLength": 1},
			"description":           {"type": "string"},
			"date":                  {"type": "string"},
			"time":                  {"type": "string"},
			"reminderEnabled":       {"type": "boolean"},
			"reminderOffsetMinutes": {"type": "integer", "minimum": 0, "maximum": 525600},
			"done":                  {"type": "boolean"},
			"createdAt":             {"type": "string", "format": "date-time"},
			"completedAt":           {"type": ["string", "null"], "format": "date-time"}
		}
	}
}`

// reminderValue comes from parseInt in the browser, so NaN was serialised
// as null.
const tasksLegacySchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "title", "createdAt"],
		"properties": {
			"id":            {"type": "string", "minLength": 1},
			"title":         {"type": "string", "minLength": 1},
			"desc":          {"type": ["string", "null"]},
			"date":          {"type": ["string", "null"]},
			"time":          {"type": ["string", "null"]},
			"reminder":      {"type": ["boolean", "null"]},
			"reminderValue": {"type": ["integer", "null"], "maximum": 525600},
			"done":          {"type": ["boolean", "null"]},
			"createdAt":     {"type": "string", "format": "date-time"},
			"completedAt":   {"type": ["string", "null"], "format": "date-time"}
		}
	}
}`

var (
	userSchemas = map[int]*jsonschema.Schema{
		schemaLegacy:  mustCompile("https://mylist.local/schema/user.v0.json", userLegacySchema),
		schemaCurrent: mustCompile("https://mylist.local/schema/user.v1.json", userV1Schema),
	}
	taskSchemas = map[int]*jsonschema.Schema{
		schemaLegacy:  mustCompile("https://mylist.local/schema/tasks.v0.json", tasksLegacySchema),
		schemaCurrent: mustCompile("https://mylist.local/schema/tasks.v1.json", tasksV1Schema),
	}
)

func mustCompile(url, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(url)
}
