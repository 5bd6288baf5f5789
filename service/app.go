package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"

	"postroom/app/auth"
	"postroom/app/cache"
	"postroom/app/events"
	"postroom/app/logger"
	"postroom/app/media"
	"postroom/app/metrics"
	"postroom/app/repositories"
	"postroom/app/routes"
	"postroom/app/services"
	"postroom/app/views"
	"postroom/config"
)

// App is the fully wired web application.
type App struct {
	Config    *config.Config
	Log       *logrus.Logger
	Store     *repositories.Store
	Cache     cache.PageCache
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Services  *services.Services
	Router    *mux.Router
}

// openStore opens the configured Badger database.
func openStore(cfg *config.Config, log *logrus.Logger) (*repositories.Store, error) {
	return repositories.Open(cfg.StoragePath(), logger.NewBadger(log))
}

// openCache connects the configured page cache backend.
func openCache(ctx context.Context, cfg *config.Config) (cache.PageCache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		c, err := cache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := cache.NewMemory(cfg.Cache.MaxBytes)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// openPublisher connects to NATS when configured.
func openPublisher(cfg *config.Config, log *logrus.Logger) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		log.Debug("no nats url configured, domain events are dropped")
		return events.Noop{}, nil
	}
	p, err := events.DialNATS(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewApp opens every backend named by cfg and builds the router.
func NewApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	var err error
	if app.Store, err = openStore(cfg, log); err != nil {
		return nil, err
	}
	if app.Cache, err = openCache(ctx, cfg); err != nil {
		app.Close()
		return nil, err
	}
	if app.Publisher, err = openPublisher(cfg, log); err != nil {
		app.Close()
		return nil, err
	}
	mediaStore, err := media.NewStore(cfg.Media.Dir, cfg.Media.MaxUpload)
	if err != nil {
		app.Close()
		return nil, err
	}
	renderer, err := views.New()
	if err != nil {
		app.Close()
		return nil, err
	}

	secret := []byte(cfg.Server.SessionSecret)
	if len(secret) == 0 {
		log.Warn("server.session_secret is not set, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	app.Services = services.New(services.FromStore(app.Store), services.Options{
		Publisher: app.Publisher,
		Logger:    log,
		Metrics:   app.Metrics,
		Media:     mediaStore,
	})
	csrfKey := sha256.Sum256(append([]byte("csrf:"), secret...))
	app.Router = routes.Setup(routes.Options{
		Services:      app.Services,
		Renderer:      renderer,
		Sessions:      auth.NewSessions(secret, cfg.Server.SecureCookies),
		Cache:         app.Cache,
		IndexTTL:      cfg.Cache.IndexTTL,
		Metrics:       app.Metrics,
		Logger:        log,
		MediaDir:      mediaStore.Dir(),
		MaxUpload:     mediaStore.MaxBytes(),
		CSRFKey:       csrfKey[:],
		SecureCookies: cfg.Server.SecureCookies,
	})
	return app, nil
}

// Close releases every backend that was opened.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.WithFields(logrus.Fields{"addr": srv.Addr, "pid": os.Getpid()}).Info("starting postroom")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// FlushCacheOn empties the page cache every time a signal arrives on sig,
// until ctx is done.
func (a *App) FlushCacheOn(ctx context.Context, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-sig:
			if err := a.Cache.Flush(ctx); err != nil {
				a.Log.WithError(err).Warn("flush page cache")
				continue
			}
			a.Log.WithField("signal", s.String()).Info("page cache flushed")
		}
	}
}
