// Command prelude-flatten flattens a Prelude EDC flat XML export and prints
// the records as JSON or CSV.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
	"github.com/synaptica-ai/prelude-parser/pkg/naming"
	"github.com/synaptica-ai/prelude-parser/pkg/table"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	shortNames bool
	shortSet   bool
	format     string
	mergePair  string
	profile    string
	profiles   string
	form       string
	names      string
	required   string
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("prelude-flatten", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.BoolVar(&opts.shortNames, "short-names", false, "merge on short metadata spellings")
	fs.StringVar(&opts.format, "format", "json", "output format: json or csv")
	fs.StringVar(&opts.mergePair, "merge", "", "merge two forms, main:sub")
	fs.StringVar(&opts.profile, "profile", "", "merge using a named profile")
	fs.StringVar(&opts.profiles, "profiles", "", "YAML file with merge profiles")
	fs.StringVar(&opts.form, "form", "", "only output this form")
	fs.StringVar(&opts.names, "names", "keep", "column names: keep, snake or pascal")
	fs.StringVar(&opts.required, "required", "", "comma separated required metadata fields")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: prelude-flatten [flags] export.xml")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "short-names" {
			opts.shortSet = true
		}
	})
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	if err := flatten(fs.Arg(0), opts, stdout); err != nil {
		fmt.Fprintln(stderr, "prelude-flatten:", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, flatfile.ErrNotFound):
		return 3
	case errors.Is(err, flatfile.ErrInvalidFileType):
		return 4
	case errors.Is(err, flatfile.ErrParsing):
		return 5
	case errors.Is(err, merge.ErrMerge):
		return 6
	default:
		return 1
	}
}

func flatten(path string, opts options, w io.Writer) error {
	if opts.format != "json" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	conv, ok := naming.ParseConvention(opts.names)
	if !ok {
		return fmt.Errorf("unknown naming convention %q", opts.names)
	}
	var requiredNames []string
	for _, name := range strings.Split(opts.required, ",") {
		if name = strings.TrimSpace(name); name != "" {
			requiredNames = append(requiredNames, name)
		}
	}
	required, err := flatfile.ParseRequired(requiredNames)
	if err != nil {
		return err
	}

	ds, err := flatfile.ParseFile(path, flatfile.WithRequired(required...))
	if err != nil {
		return err
	}

	records, err := selectRecords(ds, opts)
	if err != nil {
		return err
	}

	if opts.format == "csv" {
		return table.FromRecords(records, table.Options{Convention: conv}).WriteCSV(w)
	}
	if opts.mergePair == "" && opts.profile == "" && opts.form == "" && conv == naming.Keep {
		return writeJSON(w, ds)
	}
	out := make([]*flatfile.Fields, len(records))
	for i, rec := range records {
		row := flatfile.NewFields()
		for name, v := range rec.Fields.All() {
			row.Set(conv.Apply(name), v)
		}
		out[i] = row
	}
	return writeJSON(w, out)
}

func selectRecords(ds *flatfile.Dataset, opts options) ([]flatfile.Record, error) {
	if opts.mergePair == "" && opts.profile == "" {
		if opts.form == "" {
			return ds.All(), nil
		}
		if !ds.Has(opts.form) {
			return nil, fmt.Errorf("%q: %w", opts.form, merge.ErrUnknownForm)
		}
		return ds.Records(opts.form), nil
	}

	mergeOpts := merge.Options{ShortNames: opts.shortNames}
	var mainForm, subForm string
	if opts.profile != "" {
		profiles, err := merge.LoadProfiles(opts.profiles)
		if err != nil {
			return nil, err
		}
		p, err := profiles.Lookup(opts.profile)
		if err != nil {
			return nil, err
		}
		mainForm, subForm = p.Main, p.Sub
		mergeOpts = p.Options()
		if opts.shortSet {
			mergeOpts.ShortNames = opts.shortNames
		}
	}
	if opts.mergePair != "" {
		parts := strings.SplitN(opts.mergePair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("-merge wants main:sub, got %q", opts.mergePair)
		}
		mainForm, subForm = parts[0], parts[1]
	}
	return merge.MergeForms(ds, mainForm, subForm, mergeOpts)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
