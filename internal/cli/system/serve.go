package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julianstephens/habitkeep/internal/cli"
	"github.com/julianstephens/habitkeep/internal/constants"
	"github.com/julianstephens/habitkeep/internal/httpserver"
	"github.com/julianstephens/habitkeep/internal/logger"
)

type ServeCmd struct {
	Listen        string `help:"Address to listen on (default: http.listen from config)."`
	SecureCookies bool   `help:"Mark the session cookie Secure (serve behind TLS)."`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.serve(sigCtx, ctx)
}

// serve runs until runCtx is done or the server fails.
func (c *ServeCmd) serve(runCtx context.Context, ctx *cli.Context) error {
	httpCfg := ctx.Config.HTTP
	if c.Listen != "" {
		httpCfg.Listen = c.Listen
	}

	b, err := ctx.Backends(true)
	if err != nil {
		return err
	}
	svc := b.Service(ctx.ServiceOptions...)

	server := httpserver.New(httpCfg, httpserver.Deps{
		Service:       svc,
		User:          ctx.User(),
		Version:       constants.Version,
		StartTime:     time.Now(),
		SecureCookies: c.SecureCookies,
	})
	ctx.Printf("Serving habits for %s on %s\n", ctx.User().Email, httpCfg.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-runCtx.Done():
		logger.Info("Shutting down gracefully")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}
