package main

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// printer writes command results as an aligned table on a terminal and as
// indented JSON everywhere else.
type printer struct {
	out  io.Writer
	json bool
}

func newPrinter(out io.Writer, forceJSON bool) *printer {
	return &printer{out: out, json: forceJSON || !isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// emit prints v as JSON, or calls table when writing to a terminal.
func (p *printer) emit(v any, table func(tw *tabwriter.Writer)) error {
	if p.json {
		if err := json.MarshalWrite(p.out, v, jsontext.WithIndent("  ")); err != nil {
			return err
		}
		_, err := fmt.Fprintln(p.out)
		return err
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func row(tw *tabwriter.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(tw, strings.Join(parts, "\t"))
}
