package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/contentmetrics/contentmetrics/internal/auth"
	"github.com/contentmetrics/contentmetrics/internal/widget"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks against a content metrics server",
	Long: `Run a series of diagnostic checks:

  1. Server health: does /health report ok (store reachable)?
  2. Authentication: is the stored token accepted?
  3. Widget: is the content-metrics widget registered?
  4. Token expiry: is the token close to expiration?`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := clientFromFlags()
		if err != nil {
			return err
		}
		return runDoctor(cmd.Context(), client, cmd.OutOrStdout(), time.Now())
	},
}

type checkResult struct {
	name   string
	ok     bool
	warn   bool
	detail string
}

func runDoctor(ctx context.Context, client *APIClient, w io.Writer, now time.Time) error {
	fmt.Fprintf(w, "Running health checks against %s\n\n", client.BaseURL)

	checks := []checkResult{
		checkServerHealth(ctx, client),
		checkAuthentication(ctx, client),
		checkTokenExpiry(client.Token, now),
	}

	failed := false
	for _, c := range checks {
		mark := "ok"
		switch {
		case !c.ok:
			mark = "FAIL"
			failed = true
		case c.warn:
			mark = "WARN"
		}
		fmt.Fprintf(w, "  %-4s  %-16s %s\n", mark, c.name, c.detail)
	}

	if failed {
		return fmt.Errorf("health check failed")
	}
	return nil
}

func checkServerHealth(ctx context.Context, client *APIClient) checkResult {
	elapsed, err := client.Health(ctx)
	if err != nil {
		return checkResult{name: "Server Health", detail: err.Error()}
	}
	return checkResult{name: "Server Health", ok: true, detail: fmt.Sprintf("ok (%dms)", elapsed.Milliseconds())}
}

func checkAuthentication(ctx context.Context, client *APIClient) checkResult {
	widgets, err := client.ListWidgets(ctx)
	if err != nil {
		return checkResult{name: "Authentication", detail: fmt.Sprintf("token rejected: %v", err)}
	}
	for _, d := range widgets {
		if d.ID == widget.MetricsWidgetID && d.PluginID == client.PluginID {
			return checkResult{name: "Authentication", ok: true, detail: "token valid, widget " + d.Endpoint}
		}
	}
	return checkResult{
		name:   "Authentication",
		ok:     true,
		warn:   true,
		detail: fmt.Sprintf("token valid, but no %s widget for plugin %q", widget.MetricsWidgetID, client.PluginID),
	}
}

// checkTokenExpiry reads the expiry claim without verifying the signature.
func checkTokenExpiry(token string, now time.Time) checkResult {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return checkResult{name: "Token Expiry", ok: true, warn: true, detail: "cannot decode token"}
	}
	if claims.ExpiresAt == nil {
		return checkResult{name: "Token Expiry", ok: true, detail: "token does not expire"}
	}

	exp := claims.ExpiresAt.Time
	if now.After(exp) {
		return checkResult{
			name:   "Token Expiry",
			detail: fmt.Sprintf("expired at %s (re-run 'contentmetrics login')", exp.Format(time.RFC3339)),
		}
	}

	remaining := exp.Sub(now)
	detail := fmt.Sprintf("expires %s (in %s)", exp.Format(time.RFC3339), formatDuration(remaining))
	return checkResult{name: "Token Expiry", ok: true, warn: remaining < time.Hour, detail: detail}
}

// formatDuration renders a duration in human-friendly form.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		hours := int(d.Hours())
		if mins := int(d.Minutes()) - hours*60; mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	if hours := int(d.Hours()) - days*24; hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}
