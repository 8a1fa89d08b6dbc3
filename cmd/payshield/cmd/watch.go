package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payshield/internal/auth"
	"payshield/internal/logger"
	"payshield/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the tab's identity, including changes made by sibling tabs",
		Long: `watch keeps the tab open and prints every identity change. With
--listen it also serves /me and /admin, guarded by the tab's access gate.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			t, err := openTab(ctx, opts.cfg, opts.tab)
			if err != nil {
				return err
			}
			defer t.Close()
			if err := t.connect(ctx); err != nil {
				return err
			}

			scope := t.store.Scope()
			unsubscribe := t.bridge.OnAuthChange(func(rec *auth.Record) {
				if rec == nil {
					pterm.Info.Printfln("[%s] signed out", scope)
					return
				}
				pterm.Info.Printfln("[%s] signed in as %s (%s)", scope, rec.Email, rec.Role)
			})
			defer unsubscribe()

			if listen != "" {
				srv := &http.Server{
					Addr:              listen,
					Handler:           guardedRouter(t),
					ReadHeaderTimeout: opts.cfg.HTTPTimeout,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("guarded routes stopped", map[string]any{
							"addr":  listen,
							"error": err.Error(),
						})
						stop()
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				pterm.Info.Printfln("serving guarded routes on %s", listen)
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Serve gated routes on this address, e.g. :9090")
	return cmd
}

// guardedRouter exposes the tab to local tools. Access is decided by the
// gate alone; no request triggers a resolution.
func guardedRouter(t *tab) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	a := middleware.NewAuthMiddleware(newGate(t), "")

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/me", middleware.GinRequireAuth(a), func(c *gin.Context) {
		c.JSON(http.StatusOK, c.MustGet("user"))
	})
	r.GET("/admin", middleware.GinRequireRole(a, auth.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}
