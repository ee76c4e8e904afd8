package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"donation-console/internal/auth/models"
	authService "donation-console/internal/auth/service"
	"donation-console/internal/config"
	"donation-console/internal/gateway"
	"donation-console/internal/logger"
	"donation-console/internal/metrics"
	"donation-console/internal/session"
)

const passwordEnv = "DONATION_CONSOLE_PASSWORD"

func reportCmd() *cobra.Command {
	var (
		ci       string
		out      string
		noDonors bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Log in and write the distribution report PDF",
		Long: fmt.Sprintf(`Logs in to the backend with the given CI, fetches the current metrics
and donor list, and writes the distribution report as PDF.

The password is read from %s.`, passwordEnv),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv(passwordEnv)
			if ci == "" || password == "" {
				return fmt.Errorf("--ci and %s are required", passwordEnv)
			}
			if out == "" {
				out = fmt.Sprintf("reporte-distribucion-%s.pdf", time.Now().Format("2006-01-02"))
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := logger.Init(cfg.Server.Environment); err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := writeReport(ctx, cfg, ci, password, out, !noDonors); err != nil {
				return fmt.Errorf("%s: %w", gateway.UserMessage(err), err)
			}

			color.Green("Reporte generado: %s", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&ci, "ci", "", "CI of the console user")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default reporte-distribucion-<date>.pdf)")
	cmd.Flags().BoolVar(&noDonors, "no-donors", false, "omit the donor page")
	return cmd
}

func writeReport(ctx context.Context, cfg *config.Config, ci, password, out string, withDonors bool) error {
	log := logger.L()
	opts := gateway.Options{Timeout: cfg.Backend.Timeout, ReadRetries: cfg.Backend.ReadRetries, Logger: log.Named("gateway")}
	api := gateway.NewClient(cfg.Backend.BaseURL, opts)
	sessions := session.NewRegistry()
	auth := authService.NewService(api, gateway.NewClient(cfg.Backend.AuthURL, opts), sessions, log.Named("auth"))

	resp, err := auth.Login(ctx, &models.LoginRequest{CI: ci, Password: password})
	if err != nil {
		return err
	}
	defer auth.Logout(resp.Token)
	sess, err := auth.Session(resp.Token)
	if err != nil {
		return err
	}

	dashboard := metrics.NewDashboard(api)
	m, err := dashboard.Metrics(ctx, sess, true)
	if err != nil {
		return err
	}
	var donors []metrics.DonationDonors
	if withDonors {
		if donors, err = dashboard.Donors(ctx, sess); err != nil {
			log.Warn("donor list unavailable, writing report without it", zap.Error(err))
		}
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := (metrics.Report{Metrics: m, Donors: donors, GeneratedAt: time.Now()}).Write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(out)
		return err
	}
	return f.Close()
}
