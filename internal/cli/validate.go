package cli

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"
	"github.com/spf13/cobra"

	"github.com/roach88/padsynth/internal/harness"
)

//go:embed scenario.cue
var scenarioSchema []byte

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// FileValidation holds the result for one file.
type FileValidation struct {
	Path   string            `json:"path"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	for _, f := range r.Files {
		if f.Valid {
			fmt.Fprintf(&b, "✓ %s\n", f.Path)
			continue
		}
		fmt.Fprintf(&b, "✗ %s\n", f.Path)
		for _, e := range f.Errors {
			if e.Line > 0 {
				fmt.Fprintf(&b, "  line %d: %s: %s\n", e.Line, e.Code, e.Message)
			} else {
				fmt.Fprintf(&b, "  %s: %s\n", e.Code, e.Message)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Validate scenario files without running them",
		Long: `Validate gesture scenario files against the scenario schema and the
harness's own checks, without starting an engine.

Exit codes:
  0 - All files valid
  1 - At least one file is invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(scenarioSchema, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		return WrapExitError(ExitCommandError, "scenario schema does not compile", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		formatter.VerboseLog("validating %s", path)
		fv := FileValidation{Path: path, Valid: true}
		fv.Errors = validateFile(ctx, def, path)
		if len(fv.Errors) > 0 {
			fv.Valid = false
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if err := formatter.Success(result); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateFile checks one file against the schema, then against the
// harness's parser. Parser checks run only when the schema passes.
func validateFile(ctx *cue.Context, def cue.Value, path string) []ValidationError {
	data, err := os.ReadFile(path)
	if err != nil {
		return []ValidationError{{Code: ErrCodeScenario, Message: err.Error()}}
	}

	file, err := yaml.Extract(path, data)
	if err != nil {
		return cueErrors(ErrCodeScenario, err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return cueErrors(ErrCodeScenario, err)
	}
	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return cueErrors(ErrCodeSchema, err)
	}

	if _, err := harness.ParseScenario(data); err != nil {
		return []ValidationError{{Code: ErrCodeScenario, Message: err.Error()}}
	}
	return nil
}

// cueErrors flattens a CUE error list, keeping source lines.
func cueErrors(code string, err error) []ValidationError {
	var out []ValidationError
	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{Code: code, Message: e.Error()}
		if pos := e.Position(); pos.IsValid() {
			ve.Line = pos.Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Code: code, Message: err.Error()})
	}
	return out
}
