package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/GoCodeAlone/kernel"
	"github.com/spf13/cobra"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(settings *appSettings) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the routes of the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, err := bootDemo(cmd, settings)
			if err != nil {
				return err
			}
			defer demo.router.Close()

			router := demo.router.Router()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tMETHODS\tPATH\tCONTROLLER")
			for _, name := range router.Routes() {
				route, _ := router.Route(name)
				methods := "ANY"
				if len(route.Methods) > 0 {
					methods = strings.Join(route.Methods, "|")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, methods, router.Context().BaseURL+route.Path, route.Defaults[kernel.AttrController])
			}
			return w.Flush()
		},
	}
}

// NewMatchCommand creates the match command
func NewMatchCommand(settings *appSettings) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "match PATH",
		Short: "Show the route attributes a path matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			demo, err := bootDemo(cmd, settings)
			if err != nil {
				return err
			}
			defer demo.router.Close()

			attrs, err := demo.router.Router().Match(cmd.Context(), strings.ToUpper(method), args[0])
			if err != nil {
				return err
			}
			printAttributes(cmd.OutOrStdout(), attrs)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method to match")
	return cmd
}

func bootDemo(cmd *cobra.Command, settings *appSettings) (*demoApp, error) {
	demo, err := newDemoApp(settings, newLogger(cmd.ErrOrStderr(), settings.debug), nil)
	if err != nil {
		return nil, err
	}
	if err := demo.app.Boot(cmd.Context()); err != nil {
		return nil, err
	}
	return demo, nil
}

func printAttributes(w io.Writer, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, attrs[k])
	}
}
