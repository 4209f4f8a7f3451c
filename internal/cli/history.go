package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/scoper/pkg/diagnostics"
	"github.com/thomasrohde/scoper/pkg/history"
	"github.com/thomasrohde/scoper/pkg/report"
)

func (e *env) cmdHistory(args []string) int {
	o, err := parseOptions(args)
	if err != nil || len(o.files) != 0 {
		fmt.Fprintln(e.stderr, "usage: scoper history [--db <path>] [--limit N] [--format text|json|yaml]")
		return exitUsage
	}

	cfg, code := e.loadConfig(o)
	if code != exitOK {
		return code
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		e.printDiag(diagnostics.EHistory, err.Error(), cfg.Output.Pretty)
		return exitUsage
	}
	defer store.Close()

	runs, err := store.List(e.ctx, o.limit)
	if err != nil {
		e.printDiag(diagnostics.EHistory, err.Error(), cfg.Output.Pretty)
		return exitUsage
	}

	switch cfg.Output.Format {
	case report.FormatJSON:
		enc := json.NewEncoder(e.stdout)
		if cfg.Output.Pretty {
			enc.SetIndent("", "  ")
		}
		err = enc.Encode(runs)
	case report.FormatYAML:
		enc := yaml.NewEncoder(e.stdout)
		enc.SetIndent(2)
		if err = enc.Encode(runs); err == nil {
			err = enc.Close()
		}
	default:
		w := tabwriter.NewWriter(e.stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tFILE\tSTATUS\tCOMMANDS\tDEPTH\tDURATION")
		for _, r := range runs {
			status := "ok"
			if !r.OK {
				status = "failed"
				if r.ErrorCode != "" {
					status = r.ErrorCode
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.ID, r.Started.Format(time.RFC3339), r.File, status, r.Commands, r.MaxDepth, r.Duration.Round(time.Microsecond))
		}
		err = w.Flush()
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "error writing output: %s\n", err)
		return exitUsage
	}
	return exitOK
}
