package boot

import (
	"flag"
	"net/http"
	_ "net/http/pprof" // imported for side-effect of registering HTTP handlers
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/samuel/go-metrics/metrics"
	"github.com/tecnotop/backend/environment"
	"github.com/tecnotop/backend/libs/awsutil"
	"github.com/tecnotop/backend/libs/golog"
)

type Service struct {
	MetricsRegistry metrics.Registry

	flags struct {
		debug          bool
		env            string
		managementAddr string
		awsAccessKey   string
		awsSecretKey   string
		awsRegion      string
		jsonLogs       bool
	}
	name           string
	awsSessionOnce sync.Once
	awsSession     *session.Session
	awsSessionErr  error
}

// NewService should be called at the start of a service. It parses flags and sets up a management server.
func NewService(name string, healthCheckHandler http.Handler) *Service {
	svc := &Service{name: name}
	flag.BoolVar(&svc.flags.debug, "debug", false, "Enable debug logging")
	flag.StringVar(&svc.flags.env, "env", "dev", "Execution environment")
	flag.StringVar(&svc.flags.managementAddr, "management_addr", ":9000", "`host:port` of management HTTP server")
	flag.StringVar(&svc.flags.awsAccessKey, "aws_access_key", "", "Access `key` for AWS")
	flag.StringVar(&svc.flags.awsSecretKey, "aws_secret_key", "", "Secret `key` for AWS")
	flag.StringVar(&svc.flags.awsRegion, "aws_region", "us-east-1", "AWS `region`")
	flag.BoolVar(&svc.flags.jsonLogs, "json_logs", false, "Enable JSON formatted logs")

	ParseFlags(strings.ToUpper(name) + "_")

	if svc.flags.env == "" {
		golog.Fatalf("-env flag required")
	}
	environment.SetCurrent(svc.flags.env)

	if svc.flags.jsonLogs {
		golog.Default().SetHandler(golog.WriterHandler(os.Stderr, os.Stderr, golog.JSONFormatter()))
	}

	if svc.flags.debug {
		golog.Default().SetLevel(golog.DEBUG)
	}

	http.Handle("/health-check", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthCheckHandler != nil {
			healthCheckHandler.ServeHTTP(w, r)
			return
		}
		w.Write([]byte("OK"))
	}))

	// Start management server
	go func() {
		golog.Fatalf("%s", http.ListenAndServe(svc.flags.managementAddr, nil))
	}()

	metricsRegistry := metrics.NewRegistry()
	svc.MetricsRegistry = metricsRegistry.Scope("svc." + name)

	metricsRegistry.Add("runtime", metrics.RuntimeMetrics)

	return svc
}

// Environment returns the execution environment the service was started in.
func (svc *Service) Environment() string {
	return svc.flags.env
}

// AWSSession returns an AWS session.
func (svc *Service) AWSSession() (*session.Session, error) {
	svc.awsSessionOnce.Do(func() {
		awsConfig, err := awsutil.Config(svc.flags.awsRegion, svc.flags.awsAccessKey, svc.flags.awsSecretKey)
		if err != nil {
			svc.awsSessionErr = err
			return
		}
		svc.awsSession = session.New(awsConfig)
	})
	return svc.awsSession, svc.awsSessionErr
}

// WaitForTermination waits for an INT or TERM signal.
func WaitForTermination() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	golog.Infof("Quitting due to signal %s", sig.String())
}
