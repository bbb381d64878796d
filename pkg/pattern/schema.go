package pattern

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaFS embed.FS

// SchemaVersion is the current pattern schema version
const SchemaVersion = "1.0.0"

const schemaURL = "https://github.com/coolbeans/regchunk/pattern-table.schema.json"

var (
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
	compiledSchemaOnce sync.Once
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

// knownTypes mirrors the element types understood by the parser.
var knownTypes = map[string]bool{
	"resolution": true, "title": true, "chapter": true, "section": true,
	"subsection": true, "article": true, "clause": true, "annex": true,
	"preamble": true, "paragraph": true, "inciso": true, "alinea": true,
	"item": true,
}

// ValidateDocument checks raw YAML table content against the embedded JSON Schema.
func ValidateDocument(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	// Round-trip through JSON so numbers and maps have the shapes the validator expects.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("converting table to JSON: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("decoding table JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		data, err := schemaFS.ReadFile("schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("reading embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
			compiledSchemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// ValidateTable performs semantic validation of a Table beyond what the
// JSON Schema can express: known types, compilable regexes, capture groups.
func ValidateTable(t *Table) ValidationErrors {
	var errs ValidationErrors

	if t.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "required field is missing"})
	}
	if t.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "required field is missing"})
	} else if !isValidTableID(t.ID) {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: "must be lowercase alphanumeric with hyphens, starting with a letter",
			Value:   t.ID,
		})
	}
	if t.Version == "" {
		errs = append(errs, ValidationError{Field: "version", Message: "required field is missing"})
	} else if !isValidVersion(t.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: "must be semantic version (e.g., 1.0.0)",
			Value:   t.Version,
		})
	}

	if len(t.Levels) == 0 {
		errs = append(errs, ValidationError{Field: "levels", Message: "at least one level is needed"})
	}
	for i, level := range t.Levels {
		errs = append(errs, validateLevel(fmt.Sprintf("levels[%d]", i), level)...)
	}

	errs = append(errs, validateRegex("page_marker", t.PageMarker, true)...)
	if re, err := regexp.Compile(t.PageMarker); err == nil && t.PageMarker != "" && re.NumSubexp() < 1 {
		errs = append(errs, ValidationError{Field: "page_marker", Message: "must capture the page number in group 1"})
	}
	for i, p := range t.Trash {
		errs = append(errs, validateRegex(fmt.Sprintf("trash[%d]", i), p, true)...)
	}
	errs = append(errs, validateRegex("revoked", t.Revoked, false)...)
	errs = append(errs, validateRegex("amendment", t.Amendment, false)...)
	errs = append(errs, validateRegex("inclusion.open", t.Inclusion.Open, false)...)
	errs = append(errs, validateRegex("inclusion.close", t.Inclusion.Close, false)...)
	if (t.Inclusion.Open == "") != (t.Inclusion.Close == "") {
		errs = append(errs, ValidationError{Field: "inclusion", Message: "open and close must be set together"})
	}

	for name := range t.DisplayNames {
		if !knownTypes[name] {
			errs = append(errs, ValidationError{Field: "display_names", Message: "unknown element type", Value: name})
		}
	}

	for i, ind := range t.Detection.Structural {
		errs = append(errs, validateRegex(fmt.Sprintf("detection.structural[%d]", i), ind.Pattern, true)...)
	}
	for i, ind := range t.Detection.Headers {
		errs = append(errs, validateRegex(fmt.Sprintf("detection.headers[%d]", i), ind.Pattern, true)...)
	}

	return errs
}

func validateLevel(field string, level Level) ValidationErrors {
	var errs ValidationErrors

	if level.Type == "" {
		errs = append(errs, ValidationError{Field: field + ".type", Message: "type is required"})
	} else if !knownTypes[level.Type] {
		errs = append(errs, ValidationError{Field: field + ".type", Message: "invalid element type", Value: level.Type})
	}

	if level.NumberGroup < 0 {
		errs = append(errs, ValidationError{Field: field + ".number_group", Message: "must be non-negative", Value: level.NumberGroup})
	}

	if level.Pattern == "" {
		errs = append(errs, ValidationError{Field: field + ".pattern", Message: "pattern is required"})
		return errs
	}
	re, err := regexp.Compile(level.Pattern)
	if err != nil {
		errs = append(errs, ValidationError{Field: field + ".pattern", Message: "invalid regex: " + err.Error(), Value: level.Pattern})
		return errs
	}
	if level.Fixed == "" && re.NumSubexp() < level.groupIndex() {
		errs = append(errs, ValidationError{
			Field:   field + ".pattern",
			Message: fmt.Sprintf("needs capture group %d for the number", level.groupIndex()),
			Value:   level.Pattern,
		})
	}
	return errs
}

func validateRegex(field, pattern string, required bool) ValidationErrors {
	if pattern == "" {
		if required {
			return ValidationErrors{{Field: field, Message: "pattern is required"}}
		}
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return ValidationErrors{{Field: field, Message: "invalid regex: " + err.Error(), Value: pattern}}
	}
	return nil
}

// groupIndex returns the capture group holding the number, defaulting to 1.
func (l Level) groupIndex() int {
	if l.NumberGroup > 0 {
		return l.NumberGroup
	}
	return 1
}

// NumberIndex exposes the effective number capture group.
func (l Level) NumberIndex() int {
	return l.groupIndex()
}

func isValidTableID(id string) bool {
	if len(id) == 0 {
		return false
	}
	// Must start with lowercase letter
	if id[0] < 'a' || id[0] > 'z' {
		return false
	}
	for _, c := range id[1:] {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return true
}

func isValidVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}

// GetEmbeddedSchema returns the embedded JSON Schema as a map
func GetEmbeddedSchema() (map[string]interface{}, error) {
	data, err := schemaFS.ReadFile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema: %w", err)
	}

	var schema map[string]interface{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing embedded schema: %w", err)
	}

	return schema, nil
}
