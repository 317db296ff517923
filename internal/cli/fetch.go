package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/inercia/go-baski/pkg/httpclient"
)

type requestFlags struct {
	method      string
	data        string
	form        map[string]string
	query       map[string]string
	headers     map[string]string
	maxAttempts int
	failFast    bool
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	fs.StringVarP(&f.data, "data", "d", "", "JSON request body")
	fs.StringToStringVar(&f.form, "form", nil, "urlencoded body fields (k=v)")
	fs.StringToStringVarP(&f.query, "query", "q", nil, "query parameters (k=v)")
	fs.StringToStringVarP(&f.headers, "header", "H", nil, "request headers (k=v)")
	fs.IntVar(&f.maxAttempts, "max-attempts", -1, "retry budget for this request (default from settings)")
	fs.BoolVar(&f.failFast, "fail-fast", false, "fail instead of waiting for the pacing slot")
}

func (f *requestFlags) options() ([]httpclient.RequestOption, error) {
	opts := []httpclient.RequestOption{httpclient.Method(f.method)}

	if f.data != "" && len(f.form) > 0 {
		return nil, usageErr("--data and --form are mutually exclusive")
	}
	if f.data != "" {
		var body any
		if err := json.Unmarshal([]byte(f.data), &body); err != nil {
			return nil, usageErr("--data is not valid JSON: %v", err)
		}
		opts = append(opts, httpclient.JSON(body))
	}
	if len(f.form) > 0 {
		values := url.Values{}
		for k, v := range f.form {
			values.Set(k, v)
		}
		opts = append(opts, httpclient.Form(values))
	}
	for k, v := range f.query {
		opts = append(opts, httpclient.Param(k, v))
	}
	for k, v := range f.headers {
		opts = append(opts, httpclient.Header(k, v))
	}
	if f.maxAttempts >= 0 {
		opts = append(opts, httpclient.MaxAttempts(f.maxAttempts))
	}
	if f.failFast {
		opts = append(opts, httpclient.FailFast())
	}
	return opts, nil
}

func fetchCmd(a *app) *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Send a request through the retrying, paced HTTP pipeline",
		Example: `  baski fetch https://httpbin.org/get -q name=baski
  baski fetch https://httpbin.org/post -X POST -d '{"a":1}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			hc, err := httpclient.New(a.settings.HTTPOptions(a.logger)...)
			if err != nil {
				return err
			}

			body, err := hc.Fetch(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			return printBody(a.env.Stdout, body)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// printBody writes text bodies as they are and everything else as JSON.
func printBody(w io.Writer, body any) error {
	switch b := body.(type) {
	case nil:
		return nil
	case string:
		_, err := fmt.Fprintln(w, b)
		return err
	}
	data, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
