package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	schemasassets "github.com/windlass-dev/windlass/internal/assets/schemas"
)

// SchemaID identifies the pull manifest schema.
const SchemaID = "windlass/v1.0.0/pull-manifest"

var (
	// ErrSchemaNotFound means the embedded schema is missing or empty.
	ErrSchemaNotFound = errors.New("manifest schema not found")

	// ErrValidationFailed marks every schema rejection, so callers can
	// errors.Is without caring how many fields were bad.
	ErrValidationFailed = errors.New("manifest validation failed")
)

// ValidationError is one schema violation, located by JSON pointer.
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects every violation from one document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return "validation failed"
	case 1:
		return e[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "manifest validation failed with %d errors:", len(e))
	for _, err := range e {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// Validate checks a decoded manifest against the schema.
//
// A decoded struct has already lost any unknown fields, so this cannot
// catch misspelled keys; ValidateRaw on the original bytes does.
func Validate(m *Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("serialize manifest for validation: %w", err)
	}
	return ValidateRaw(data)
}

// ValidateRaw checks a raw JSON document against the schema, including the
// additionalProperties rules that reject unknown fields.
//
// The schema is embedded in the binary, so validation needs no files on
// disk and works the same for installed binaries and library consumers.
func ValidateRaw(doc []byte) error {
	v, err := compiledSchema()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(doc)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity != schema.SeverityError {
			continue
		}
		errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

var (
	schemaOnce sync.Once
	schemaVal  *schema.Validator
	schemaErr  error
)

// compiledSchema compiles the embedded schema on first use and caches the
// validator for the life of the process.
func compiledSchema() (*schema.Validator, error) {
	schemaOnce.Do(func() {
		if len(schemasassets.PullManifestSchema) == 0 {
			schemaErr = fmt.Errorf("%w: embedded pull-manifest schema is empty", ErrSchemaNotFound)
			return
		}
		schemaVal, schemaErr = schema.NewValidator(schemasassets.PullManifestSchema)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile manifest schema: %w", schemaErr)
		}
	})
	return schemaVal, schemaErr
}
