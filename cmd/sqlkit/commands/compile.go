package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
	"github.com/Konsultn-Engineering/sqlkit/engine"
	"github.com/Konsultn-Engineering/sqlkit/template"
)

type compileFlags struct {
	sql     string
	params  string
	dialect string
	offset  int
	limit   int
	count   bool
}

func newCompileCommand(o *options) *cobra.Command {
	f := &compileFlags{}

	cmd := &cobra.Command{
		Use:   "compile [file | resource#SQL_ID]",
		Short: "Compile a SQL template and print the statement with its arguments",
		Example: `  sqlkit compile --sql 'select * from t where $if(id){id = :id}' --params '{"id": 7}' --dialect postgres
  sqlkit compile users#SEARCH --params '{"name": "an"}' --count`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.OutOrStdout(), o, f, args)
		},
	}

	cmd.Flags().StringVar(&f.sql, "sql", "", "template text, instead of a file or resource")
	cmd.Flags().StringVarP(&f.params, "params", "p", "", "parameters as a JSON object")
	cmd.Flags().StringVarP(&f.dialect, "dialect", "d", "", "target dialect (default from config)")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "pagination offset")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "pagination limit")
	cmd.Flags().BoolVar(&f.count, "count", false, "compile the count form")

	return cmd
}

func runCompile(w io.Writer, o *options, f *compileFlags, args []string) error {
	s, err := o.settings()
	if err != nil {
		return err
	}

	d, err := s.ResolveDialect()
	if f.dialect != "" {
		d, err = dialect.Lookup(f.dialect)
	}
	if err != nil {
		return err
	}

	opts := s.EngineOptions(zap.NewNop())
	loader, err := s.ResourceLoader(o.fs, nil)
	if err != nil {
		return err
	}
	opts.Resources = loader
	e := engine.New(d, opts)

	text, err := templateText(o.fs, e, f, args)
	if err != nil {
		return err
	}
	params, err := parseParams(f.params)
	if err != nil {
		return err
	}

	var callOpts []engine.CallOption
	if f.offset > 0 || f.limit > 0 {
		callOpts = append(callOpts, engine.WithPage(f.offset, f.limit))
	}
	plan, err := e.Plan(text, params, f.count, callOpts...)
	if err != nil {
		return err
	}

	heading.Fprintf(w, "SQL (%s)\n", d.Name())
	fmt.Fprintf(w, "%s\n", plan.SQL)
	if len(plan.Params) > 0 {
		heading.Fprintln(w, "Parameters")
		for i, p := range plan.Params {
			fmt.Fprintf(w, "  %d  %-16s %s\n", i+1, p.String(), d.RenderValue(plan.Args[i]))
		}
	}
	faint.Fprintf(w, "static: %t\n", plan.Static)
	if (f.offset > 0 || f.limit > 0) && !f.count && !d.SupportsOffset() {
		faint.Fprintf(w, "pagination applied client-side (offset %d, limit %d)\n", f.offset, f.limit)
	}
	return nil
}

// templateText picks the template from --sql, a resource reference or a
// file, in that order.
func templateText(fs afero.Fs, e *engine.Engine, f *compileFlags, args []string) (string, error) {
	if f.sql != "" {
		return f.sql, nil
	}
	if len(args) == 0 {
		return "", errors.New("no template: pass a file, a resource#SQL_ID reference or --sql")
	}
	arg := args[0]
	if strings.Contains(arg, "#") {
		if ok, _ := afero.Exists(fs, arg); !ok {
			return e.Resolve(arg)
		}
	}
	data, err := afero.ReadFile(fs, arg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseParams decodes a JSON object. Integral numbers become int64, other
// numbers float64.
func parseParams(s string) (template.Map, error) {
	if strings.TrimSpace(s) == "" {
		return template.Map{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("--params: %w", err)
	}
	for k, v := range raw {
		raw[k] = normalize(v)
	}
	return template.Map(raw), nil
}

func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case []any:
		for i := range val {
			val[i] = normalize(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalize(val[k])
		}
		return template.Map(val)
	}
	return v
}
