// Command go-runner starts a http server that compiles and runs Go
// submissions with the local go toolchain and returns their output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/criyle/go-runner/cmd/go-runner/config"
	restexecutor "github.com/criyle/go-runner/cmd/go-runner/rest_executor"
	"github.com/criyle/go-runner/cmd/go-runner/version"
	"github.com/criyle/go-runner/language"
	"github.com/criyle/go-runner/worker"
	"github.com/criyle/go-runner/workspace"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

var logger *zap.Logger

func main() {
	conf := loadConf()
	if conf.Version {
		fmt.Println(version.Version)
		return
	}
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("config", fmt.Sprintf("%+v", conf)))
	}

	lang, err := language.NewGo(language.GoConfig{
		Cmd:       conf.GoCmd,
		RunArgs:   conf.RunArgs,
		TestArgs:  conf.TestArgs,
		BenchArgs: conf.BenchArgs,
		Env:       conf.ToolchainEnv,
	})
	if err != nil {
		logger.Fatal("Invalid toolchain config", zap.Error(err))
	}

	m, dirCleanUp := newWorkspaceManager(conf)
	sweeper := newSweeper(conf, m)
	work := newWorker(conf, m, lang)
	logger.Info("Worker started",
		zap.Int("parallelism", conf.Parallelism),
		zap.String("dir", m.Root()),
		zap.Duration("timeLimit", conf.TimeLimit),
		zap.Stringer("outputLimit", *conf.OutputLimit))

	servers := []initFunc{
		cleanUpWorker(work),
		cleanUpSweeper(sweeper, dirCleanUp),
		initHTTPServer(conf, work, m),
		initMonitorHTTPServer(conf),
	}

	// Gracefully shutdown, with signal / HTTP server / Monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers))

	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}
	notifySystemd(daemon.SdNotifyReady)

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")
	notifySystemd(daemon.SdNotifyStopping)

	ctx, cancel := context.WithTimeout(context.TODO(), conf.TimeLimit+3*time.Second)
	defer cancel()

	var eg errgroup.Group
	for _, s := range stops {
		eg.Go(func() error {
			return s(ctx)
		})
	}

	go func() {
		logger.Info("Shutdown Finished", zap.Error(eg.Wait()))
		cancel()
	}()
	<-ctx.Done()
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func cleanUpWorker(work worker.Worker) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			work.Shutdown()
			logger.Info("Worker shutdown")
			return nil
		}
	}
}

func cleanUpSweeper(s *workspace.Sweeper, dirCleanUp func() error) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			s.Stop()
			logger.Info("Sweeper stopped")
			if dirCleanUp == nil {
				return nil
			}
			err := dirCleanUp()
			logger.Info("Workspace root cleaned up")
			return err
		}
	}
}

func initHTTPServer(conf *config.Config, work worker.Worker, store workspace.Store) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		var h http.Handler = initHTTPMux(conf, work, store)
		if conf.EnableH2C {
			h = h2c.NewHandler(h, &http2.Server{})
		}
		srv := http.Server{
			Addr:    conf.HTTPAddr,
			Handler: h,
		}

		return func() {
				lis, err := newAPIListener(conf.HTTPAddr)
				if err != nil {
					logger.Error("Http server listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting http server", zap.String("addr", conf.HTTPAddr), zap.String("listener", printListener(lis)))
				if err := srv.Serve(lis); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		mr := initMonitorHTTPMux(conf)
		if mr == nil {
			return nil, nil
		}
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mr,
		}
		return func() {
				lis, err := newListener(conf.MonitorAddr)
				if err != nil {
					logger.Error("Monitoring http listen failed", zap.Error(err))
					return
				}
				logger.Info("Starting monitoring http server", zap.String("addr", conf.MonitorAddr), zap.String("listener", printListener(lis)))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.Serve(lis)))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func initHTTPMux(conf *config.Config, work worker.Worker, store workspace.Store) http.Handler {
	if conf.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(newCORS(conf.CORSOrigins))

	// Metrics Handle
	if conf.EnableMetrics {
		initGinMetrics(r)
	}

	// Version handle
	r.GET("/version", generateHandleVersion(conf))

	// Config handle
	r.GET("/config", generateHandleConfig(conf, store))

	// Rest Handle
	restexecutor.NewHealthHandle().Register(r)
	r.Use(restexecutor.BodyLimit(int64(*conf.BodyLimit)))
	restexecutor.NewCompileHandle(work, logger).Register(r)

	return r
}

func newCORS(origins string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		MaxAge:       12 * time.Hour,
	}
	if o := strings.Fields(origins); len(o) == 0 || o[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = o
	}
	return cors.New(c)
}

func initMonitorHTTPMux(conf *config.Config) http.Handler {
	if !conf.EnableMetrics && !conf.EnableDebug {
		return nil
	}
	mux := http.NewServeMux()
	if conf.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if conf.EnableDebug {
		initDebugRoute(mux)
	}
	return mux
}

func initDebugRoute(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func newWorkspaceManager(conf *config.Config) (*workspace.Manager, func() error) {
	var cleanUp func() error
	if conf.Dir == "" {
		conf.Dir = filepath.Join(os.TempDir(), "go-runner")
		err := os.Mkdir(conf.Dir, 0o755)
		if err != nil && !errors.Is(err, os.ErrExist) {
			logger.Fatal("Failed to create default workspace dir", zap.Error(err))
		}
		cleanUp = func() error {
			return os.RemoveAll(conf.Dir)
		}
	}
	return workspace.NewManager(conf.Dir), cleanUp
}

func newSweeper(conf *config.Config, m *workspace.Manager) *workspace.Sweeper {
	var observe func([]string)
	if conf.EnableMetrics {
		observe = sweepObserve
	}
	return workspace.NewSweeper(m, conf.WorkspaceTTL, conf.SweepInterval, observe, logger)
}

func newWorker(conf *config.Config, m *workspace.Manager, lang language.Language) worker.Worker {
	var store workspace.Store = m
	var observer func(worker.Response)
	if conf.EnableMetrics {
		store = newMetricsStore(m)
		observer = execObserve
	}
	w := worker.New(worker.Config{
		Store:        store,
		Language:     lang,
		Parallelism:  conf.Parallelism,
		TimeLimit:    conf.TimeLimit,
		OutputLimit:  *conf.OutputLimit,
		ExecObserver: observer,
		Logger:       logger,
	})
	if conf.EnableMetrics {
		w = newMetricsWorker(w)
	}
	return w
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		logger.Debug("sd_notify sent", zap.String("state", state))
	}
}

func generateHandleVersion(_ *config.Config) func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"buildVersion": version.Version,
			"goVersion":    runtime.Version(),
			"platform":     runtime.GOARCH,
			"os":           runtime.GOOS,
		})
	}
}

func generateHandleConfig(conf *config.Config, store workspace.Store) func(*gin.Context) {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"goCmd":          conf.GoCmd,
			"runArgs":        conf.RunArgs,
			"testArgs":       conf.TestArgs,
			"benchArgs":      conf.BenchArgs,
			"toolchainEnv":   conf.ToolchainEnv,
			"timeLimit":      conf.TimeLimit.String(),
			"outputLimit":    conf.OutputLimit.String(),
			"bodyLimit":      conf.BodyLimit.String(),
			"parallelism":    conf.Parallelism,
			"workspaceRoot":  store.Root(),
			"workspaceCount": len(store.List()),
		})
	}
}
