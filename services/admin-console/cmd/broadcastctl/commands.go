package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/apiclient"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/composer"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/logger"
)

var (
	previewTemplate string
	previewParams   []string

	sendTemplate string
	sendParams   []string
	phones       []string
	names        []string
	quoteIDs     []string
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the template catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printTemplates(cmd.OutOrStdout(), broadcast.DefaultCatalog())
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render a template preview with sample values",
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, err := broadcast.DefaultCatalog().Lookup(previewTemplate)
		if err != nil {
			return err
		}
		bindings, err := applyParams(tpl.DefaultBindings(), previewParams)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), composer.RenderPreview(tpl, bindings))
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a template to one or more phones",
	Long: `Send a template to the given phones through the broadcast backend.

Names and quote ids are matched to phones by position. Parameters use
N=value with N starting at 1, e.g. --param 3=30/06/2025.`,
	RunE: runSend,
}

func init() {
	previewCmd.Flags().StringVarP(&previewTemplate, "template", "t", "generic_reminder", "Template id")
	previewCmd.Flags().StringArrayVarP(&previewParams, "param", "p", nil, "Parameter override N=value")

	sendCmd.Flags().StringVarP(&sendTemplate, "template", "t", "", "Template id")
	sendCmd.Flags().StringArrayVarP(&sendParams, "param", "p", nil, "Parameter override N=value")
	sendCmd.Flags().StringSliceVar(&phones, "phone", nil, "Recipient phone (repeatable)")
	sendCmd.Flags().StringSliceVar(&names, "name", nil, "Recipient name, by position")
	sendCmd.Flags().StringSliceVar(&quoteIDs, "quote-id", nil, "Quote id, by position")
	_ = sendCmd.MarkFlagRequired("template")
	_ = sendCmd.MarkFlagRequired("phone")
}

func runSend(cmd *cobra.Command, args []string) error {
	env := "production"
	if verbose {
		env = "development"
	}
	lg, err := logger.New("broadcastctl", env, "warn")
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	backend := apiclient.New(apiURL, apiclient.StaticToken(token), timeout)
	c := composer.New(backend, broadcast.DefaultCatalog(), lg)

	ctx := cmd.Context()
	c.Open(ctx, initialEntries(phones, names, quoteIDs))
	defer c.Close()

	if err := c.SetTemplate(sendTemplate); err != nil {
		return err
	}
	bindings, err := applyParams(c.Snapshot().Bindings, sendParams)
	if err != nil {
		return err
	}
	for i, v := range bindings {
		if err := c.SetParam(i, v); err != nil {
			return err
		}
	}

	resp, err := c.Send(ctx)
	if err != nil {
		lg.Debug("send failed", zap.Error(err))
		return errors.New(composer.NoticeFor(err))
	}
	if resp == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No recipients selected, nothing sent.")
		return nil
	}
	return printReport(cmd.OutOrStdout(), resp)
}

func initialEntries(phones, names, quoteIDs []string) []composer.InitialEntry {
	out := make([]composer.InitialEntry, len(phones))
	for i, p := range phones {
		out[i].Phone = p
		if i < len(names) {
			out[i].Name = names[i]
		}
		if i < len(quoteIDs) {
			out[i].QuoteID = composer.QuoteRef(quoteIDs[i])
		}
	}
	return out
}

// applyParams overrides bindings with N=value pairs (N is 1-based).
func applyParams(bindings []string, overrides []string) ([]string, error) {
	out := append([]string(nil), bindings...)
	for _, o := range overrides {
		k, v, ok := strings.Cut(o, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q: expected N=value", o)
		}
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || n < 1 || n > len(out) {
			return nil, fmt.Errorf("parameter %q: index must be between 1 and %d", o, len(out))
		}
		out[n-1] = v
	}
	return out, nil
}

func printTemplates(w io.Writer, catalog *broadcast.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tPARAMS\tDEFAULTS")
	for _, t := range catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Label,
			strings.Join(t.ParamLabels, ", "), strings.Join(t.Defaults, ", "))
	}
	return tw.Flush()
}

func printReport(w io.Writer, resp *broadcast.SendResponse) error {
	fmt.Fprintf(w, "Broadcast %s: %d total, %d ok, %d failed\n\n",
		resp.Status, resp.TotalClients, resp.Successful, resp.Failed)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHONE\tRESULT\tDETAIL")
	for _, r := range resp.Results {
		if r.Success {
			fmt.Fprintf(tw, "%s\tok\t%s\n", r.Phone, r.MessageID)
		} else {
			fmt.Fprintf(tw, "%s\tfailed\t%s\n", r.Phone, r.Error)
		}
	}
	return tw.Flush()
}
