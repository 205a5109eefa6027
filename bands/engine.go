package bands

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// costLimit bounds a single band evaluation.
const costLimit = 10000

// Engine holds one compiled band table.
// Engines are immutable after construction and safe for concurrent use.
type Engine struct {
	table    Table
	programs []cel.Program // parallel to table.Bands
}

// NewEnv returns the CEL environment band expressions are compiled against.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(Variable, cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine validates and compiles a table.
func NewEngine(t Table) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	return NewEngineWithEnv(env, t)
}

// NewEngineWithEnv compiles a table against a caller-supplied environment.
func NewEngineWithEnv(env *cel.Env, t Table) (*Engine, error) {
	if err := ValidateTable(t); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	en := &Engine{
		table:    cloneTable(t),
		programs: make([]cel.Program, 0, len(t.Bands)),
	}

	for _, b := range t.Bands {
		prog, err := compileBand(env, b.Expression)
		if err != nil {
			return nil, fmt.Errorf("table %s band %d (%s): %w", t.Name, b.Code, b.Name, err)
		}
		en.programs = append(en.programs, prog)
	}

	return en, nil
}

// MustEngine is NewEngine for tables known to be valid at init time.
func MustEngine(t Table) *Engine {
	en, err := NewEngine(t)
	if err != nil {
		panic(err)
	}
	return en
}

func compileBand(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression %q must evaluate to bool, got %s", expression, ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Name returns the table name.
func (en *Engine) Name() string {
	return en.table.Name
}

// Table returns a copy of the compiled table definition.
func (en *Engine) Table() Table {
	return cloneTable(en.table)
}

// Fallback returns the code used for missing or unmatched values.
func (en *Engine) Fallback() int {
	return en.table.Fallback
}

// Classify returns the code of the first band matching v.
// It never fails: evaluation errors and non-matches yield the fallback code.
func (en *Engine) Classify(v int) int {
	return en.Explain(v).Code
}

// Explain is Classify with the matched band reported.
func (en *Engine) Explain(v int) Classification {
	vars := map[string]any{Variable: int64(v)}

	for i, prog := range en.programs {
		out, _, err := prog.Eval(vars)
		if err != nil {
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			b := en.table.Bands[i]
			return Classification{Table: en.table.Name, Code: b.Code, Band: b.Name}
		}
	}

	return en.fallback()
}

// Missing returns the classification for an absent or unparsable value.
func (en *Engine) Missing() Classification {
	return en.fallback()
}

func (en *Engine) fallback() Classification {
	return Classification{Table: en.table.Name, Code: en.table.Fallback, Fallback: true}
}

func cloneTable(t Table) Table {
	out := t
	out.Bands = make([]Band, len(t.Bands))
	copy(out.Bands, t.Bands)
	return out
}
