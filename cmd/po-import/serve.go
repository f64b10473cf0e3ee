package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	_ "github.com/erp/poimport/docs"
	"github.com/erp/poimport/internal/infrastructure/auth"
	"github.com/erp/poimport/internal/infrastructure/telemetry"
	"github.com/erp/poimport/internal/interfaces/http/handler"
	"github.com/erp/poimport/internal/interfaces/http/middleware"
	"github.com/erp/poimport/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the import over HTTP",
		Long: "Accepts multipart uploads on POST /api/v1/import/purchase-orders and\n" +
			"returns the run summary as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd, flags, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: :<app.port>)")
	return cmd
}

func runServe(cmd *cobra.Command, flags *rootFlags, addr string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, flags.configPath, flags.overrides(cmd), flags.logOut)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.openStore(ctx); err != nil {
		return err
	}
	if err := a.startProfiler(); err != nil {
		return err
	}
	engine, err := a.buildEngine()
	if err != nil {
		return err
	}

	if addr == "" {
		addr = ":" + a.cfg.App.Port
	}
	srv := &http.Server{
		Addr:           addr,
		Handler:        engine,
		ReadTimeout:    a.cfg.HTTP.ReadTimeout,
		WriteTimeout:   a.cfg.HTTP.WriteTimeout,
		IdleTimeout:    a.cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: a.cfg.HTTP.MaxHeaderBytes,
		BaseContext:    func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.log.Info("Server exited gracefully")
	return nil
}

// startProfiler pushes profiles to Pyroscope while the server runs. It is
// stopped with the other closers.
func (a *app) startProfiler() error {
	pc := a.cfg.Telemetry.Profiling
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerSettings{
		Enabled:           pc.Enabled,
		ServerAddress:     pc.ServerAddress,
		ApplicationName:   pc.ApplicationName,
		BasicAuthUser:     pc.BasicAuthUser,
		BasicAuthPassword: pc.BasicAuthPassword,
		ProfileTypes:      pc.ProfileTypes,
	}, a.log)
	if err != nil {
		return fmt.Errorf("failed to start profiler: %w", err)
	}
	a.profiler = profiler
	a.closers = append(a.closers, profiler.Stop)

	if profiler.IsEnabled() && pc.SpanProfiles {
		if !a.tel.Tracer.IsEnabled() {
			a.log.Warn("telemetry.profiling.span_profiles needs telemetry.enabled, ignored")
		} else {
			a.tel.Tracer.EnableSpanProfiles()
		}
	}
	return nil
}

// buildEngine assembles the HTTP surface on top of an opened store
func (a *app) buildEngine() (*gin.Engine, error) {
	var meter metric.Meter
	if a.tel.Meter.IsEnabled() {
		meter = a.tel.Meter.Meter("http.server")
	}
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    a.cfg.App.Name,
		Release:        a.cfg.App.Env == "production",
		TrustedProxies: a.cfg.HTTP.TrustedProxies,
		CORSOrigins:    a.cfg.HTTP.CORSOrigins,
		TracingEnabled: a.tel.Tracer.IsEnabled(),
		Meter:          meter,

		ProfilingEnabled: a.profiler != nil && a.profiler.IsEnabled(),
	}, a.log)

	system := handler.NewSystemHandler(a.cfg.App.Name, version, a.db, a.log)
	engine.GET("/healthz", system.Health)

	api := router.API{}
	var jwtGate gin.HandlerFunc
	if a.cfg.HTTP.JWTSecret != "" {
		jwtService, err := auth.NewJWTService(a.cfg.HTTP.JWTSecret)
		if err != nil {
			return nil, err
		}
		jwtCfg := middleware.DefaultJWTConfig(jwtService)
		jwtCfg.Logger = a.log
		jwtGate = middleware.JWTAuthMiddlewareWithConfig(jwtCfg)
		api.Middleware = append(api.Middleware, jwtGate)
	} else {
		a.log.Warn("http.jwt_secret is empty, import endpoints are unauthenticated")
	}

	if a.cfg.HTTP.SwaggerEnabled {
		router.MountDocs(engine, middleware.SwaggerProtection(middleware.SwaggerConfig{
			AllowedIPs: a.cfg.HTTP.SwaggerAllowedIPs,
			Auth:       jwtGate,
		}))
	}
	api.Middleware = append(api.Middleware, middleware.SpanAttributes())
	api.Handlers = []router.RouteRegistrar{
		handler.NewPurchaseOrderImportHandler(a.service, a.cfg.HTTP.MaxUploadSize, a.log),
		system,
	}
	api.Mount(engine)
	return engine, nil
}
