package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.close(context.WithoutCancel(ctx))

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}
		gin.SetMode(a.cfg.Server.Mode)

		sc := a.cfg.Server
		router := httpapi.NewRouter(httpapi.Options{
			Engine:         a.engine,
			Metrics:        a.metrics,
			Logger:         a.log,
			Health:         a.store.Ping,
			ServiceName:    a.cfg.Telemetry.ServiceName,
			CORSOrigins:    sc.CORSOrigins,
			RateLimitRPS:   sc.RateLimitRPS,
			RateLimitBurst: sc.RateLimitBurst,
			RequestTimeout: sc.RequestTimeout,
		})
		srv := httpapi.NewServer(httpapi.ServerConfig{
			Addr:            sc.Addr,
			ReadTimeout:     sc.ReadTimeout,
			WriteTimeout:    sc.WriteTimeout,
			ShutdownTimeout: sc.ShutdownTimeout,
		}, router, a.log)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
