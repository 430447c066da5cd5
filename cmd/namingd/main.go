package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/jujinfu/dfs/internal/grace"
	"github.com/jujinfu/dfs/internal/metrics"
	"github.com/jujinfu/dfs/internal/namingserver"
	"github.com/jujinfu/dfs/pkg/config"
	applog "github.com/jujinfu/dfs/pkg/log"
)

var (
	versionFlag = flag.Bool("version", false, "show version and exit")
	testFlag    = flag.Bool("t", false, "test configuration and exit")
	configFlag  = flag.String("c", "/etc/dfs/namingd.toml", "set configuration file")
	pidFlag     = flag.String("p", "", "pid file. If empty defaults to dfs.pid in the OS temporary directory")

	gitCommit, buildDate, version = "unknown", "unknown", "dev"
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Fprintf(os.Stderr, "version=%s commit=%s build_date=%s\n", version, gitCommit, buildDate)
		os.Exit(0)
	}

	raw := readConfigOrDie()

	var logConf config.Log
	if err := config.Section(raw, "log", &logConf); err != nil {
		fmt.Fprintf(os.Stderr, "error reading log config: %s\n", err.Error())
		os.Exit(1)
	}
	var namingConf config.Naming
	if err := config.Section(raw, "naming", &namingConf); err != nil {
		fmt.Fprintf(os.Stderr, "error reading naming config: %s\n", err.Error())
		os.Exit(1)
	}

	if *testFlag {
		os.Exit(0)
	}

	logger := newLogger(logConf)
	watcher := initWatcher(logger)

	m := metrics.NewNaming()
	if namingConf.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(namingConf.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	srv := namingserver.New(logger, m)
	if err := srv.Start(namingConf.ServiceAddr, namingConf.RegistrationAddr); err != nil {
		logger.Error().Err(err).Msg("error starting naming server")
		watcher.Exit(1)
	}
	watcher.SetServers([]grace.Server{srv})

	watcher.TrapSignals()
}

func newLogger(conf config.Log) zerolog.Logger {
	mode := applog.ModeDev
	if conf.Mode == "prod" {
		mode = applog.ModeProd
	}
	level, err := zerolog.ParseLevel(conf.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return applog.New("namingd", applog.Config{Mode: mode, Level: level, Out: os.Stderr})
}

func initWatcher(l zerolog.Logger) *grace.Watcher {
	var opts []grace.Option
	if *pidFlag != "" {
		opts = append(opts, grace.WithPIDFile(*pidFlag))
	}
	opts = append(opts, grace.WithLogger(l.With().Str("pkg", "grace").Logger()))
	w := grace.NewWatcher(opts...)
	if err := w.WritePID(); err != nil {
		l.Error().Err(err).Msg("error writing pid file")
		os.Exit(1)
	}
	return w
}

func readConfigOrDie() map[string]interface{} {
	fd, err := os.Open(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening file: %s\n", err.Error())
		os.Exit(1)
	}
	defer fd.Close()

	v, err := config.Read(fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %s\n", err.Error())
		os.Exit(1)
	}
	return v
}
