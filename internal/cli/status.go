package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/checkin/internal/control"
	"github.com/vietddude/checkin/internal/core/config"
	"github.com/vietddude/checkin/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the effective configuration without secrets",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	printStatus(w, cfg)
	return w.Flush()
}

func printStatus(w *tabwriter.Writer, cfg *config.AppConfig) {
	policy := cfg.Retry.Policy()
	_, _ = fmt.Fprintln(w, "SETTING\tVALUE")
	_, _ = fmt.Fprintf(w, "max retries\t%d\n", policy.MaxAttempts)
	_, _ = fmt.Fprintf(w, "retry interval\t%s\n", policy.Interval)
	_, _ = fmt.Fprintf(w, "http timeout\t%s\n", cfg.HTTP.Timeout)
	_, _ = fmt.Fprintf(w, "account delay\t%s\n", cfg.HTTP.Delay())

	for _, site := range control.Sites {
		_, _ = fmt.Fprintf(w, "%s accounts\t%d\n", site, accountCount(cfg, site))
	}

	_, _ = fmt.Fprintf(w, "qywx-bot\t%s\n", enabled(cfg.Notify.WebhookKey != ""))
	_, _ = fmt.Fprintf(w, "push\t%s\n", enabled(cfg.Notify.PushURL != ""))
	_, _ = fmt.Fprintf(w, "log fallback\t%s\n", enabled(!cfg.Notify.DisableLogFallback))
	_, _ = fmt.Fprintf(w, "run lock\t%s\n", enabled(cfg.Redis.Enabled()))
	_, _ = fmt.Fprintf(w, "pushgateway\t%s\n", enabled(cfg.Metrics.PushgatewayURL != ""))
}

// accountCount counts accounts that carry credentials.
func accountCount(cfg *config.AppConfig, site domain.Site) int {
	n := 0
	switch site {
	case domain.SiteTampermonkey:
		for _, acc := range cfg.Tampermonkey.Accounts() {
			if acc.Cookie != "" {
				n++
			}
		}
	case domain.SiteWinMoes:
		for _, acc := range cfg.WinMoes.Accounts() {
			if acc.Username != "" && acc.Password != "" {
				n++
			}
		}
	}
	return n
}

func enabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
