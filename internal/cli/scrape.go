package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/inercia/go-baski/pkg/concurrent"
	"github.com/inercia/go-baski/pkg/httpclient"
	"github.com/inercia/go-baski/pkg/scrapfly"
)

type scrapeFlags struct {
	params   map[string]string
	renderJS bool
	failFast bool
	output   string
}

type scrapeOutcome struct {
	URL    string           `json:"url"`
	Result *scrapfly.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func scrapeCmd(a *app) *cobra.Command {
	var flags scrapeFlags

	cmd := &cobra.Command{
		Use:   "scrape URL...",
		Short: "Scrape pages through Scrapfly",
		Long: `Scrape one or more pages through Scrapfly, escalating from a plain
fetch to JavaScript rendering with anti scraping protection. Pages are
scraped concurrently, bounded by the concurrency setting.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.output != "table" && flags.output != "json" {
				return usageErr("unknown output format %q", flags.output)
			}
			s := a.settings.Scrapfly
			extra := []httpclient.Option{httpclient.WithMinInterval(s.Interval)}
			if a.settings.HTTP.Proxy != "" {
				extra = append(extra, httpclient.WithProxy(a.settings.HTTP.Proxy))
			}
			client, err := scrapfly.New(s.APIKey, a.logger, extra...)
			if err != nil {
				return err
			}

			opts := scrapfly.Options{FailFast: flags.failFast, Params: url.Values{}}
			for k, v := range flags.params {
				opts.Params.Set(k, v)
			}
			if cmd.Flags().Changed("render-js") {
				opts.RenderJS = &flags.renderJS
			}

			outcomes, err := concurrent.Map(cmd.Context(), args, a.settings.Concurrency,
				func(ctx context.Context, page string) (scrapeOutcome, error) {
					res, err := client.Scrape(ctx, page, opts)
					if err != nil {
						if ctx.Err() != nil {
							return scrapeOutcome{}, ctx.Err()
						}
						a.logger.Warn("scrape failed", "url", page, "error", err)
						return scrapeOutcome{URL: page, Error: err.Error()}, nil
					}
					return scrapeOutcome{URL: page, Result: res}, nil
				})
			if err != nil {
				return err
			}
			return printOutcomes(a, outcomes, flags.output)
		},
	}

	fs := cmd.Flags()
	fs.StringToStringVar(&flags.params, "param", nil, "query parameters added to every page (k=v)")
	fs.BoolVar(&flags.renderJS, "render-js", false, "force JavaScript rendering on or off")
	fs.BoolVar(&flags.failFast, "fail-fast", false, "fail instead of waiting for the pacing slot")
	fs.StringVarP(&flags.output, "output", "o", "table", "output format: table or json")
	return cmd
}

func printOutcomes(a *app, outcomes []scrapeOutcome, output string) error {
	if output == "json" {
		data, err := json.MarshalIndent(outcomes, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.env.Stdout, string(data))
		return err
	}

	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("URL", "STATUS", "BYTES", "ERROR")
	failed := 0
	for _, o := range outcomes {
		if o.Result == nil {
			failed++
			table.AddRow(o.URL, "-", "-", o.Error)
			continue
		}
		table.AddRow(o.URL, o.Result.StatusCode, len(o.Result.Content), "")
	}
	fmt.Fprintln(a.env.Stdout, table)
	if failed == len(outcomes) {
		return fmt.Errorf("all %d pages failed", failed)
	}
	return nil
}
