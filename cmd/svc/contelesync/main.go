package main

import (
	"flag"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/tecnotop/backend/boot"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/contele"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/dal"
	syncpkg "github.com/tecnotop/backend/cmd/svc/contelesync/internal/sync"
	"github.com/tecnotop/backend/cmd/svc/contelesync/internal/workers"
	"github.com/tecnotop/backend/libs/clock"
	"github.com/tecnotop/backend/libs/dbutil"
	"github.com/tecnotop/backend/libs/golog"
	"github.com/tecnotop/backend/libs/ratelimit"
)

var config struct {
	dbURL               string
	v2Base              string
	v2Authorization     string
	v2APIKey            string
	formsBase           string
	formsBearer         string
	since               string
	to                  string
	timezone            string
	perPage             int
	apiRateLimit        int
	syncIntervalMinutes int
	syncRequestQueueURL string
	tuningFile          string
}

func init() {
	flag.StringVar(&config.dbURL, "database_url", "", "PostgreSQL connection `URL`")
	flag.StringVar(&config.v2Base, "contele_v2_base", "", "Base `URL` of the Contele V2 API")
	flag.StringVar(&config.v2Authorization, "contele_v2_authorization", "", "Bearer `token` for the Contele V2 API")
	flag.StringVar(&config.v2APIKey, "contele_v2_x_api_key", "", "API `key` for the Contele V2 API")
	flag.StringVar(&config.formsBase, "contele_forms_base", "", "Base `URL` of the Contele forms API")
	flag.StringVar(&config.formsBearer, "contele_forms_bearer", "", "Bearer `token` for the Contele forms API")
	flag.StringVar(&config.since, "since", "", "Start `date` of the sync period (default: January 1 of the current year)")
	flag.StringVar(&config.to, "to", "", "End `date` of the sync period (default: December 31 of the current year)")
	flag.StringVar(&config.timezone, "tz", "America/Sao_Paulo", "IANA `timezone` passed to the tasks API")
	flag.IntVar(&config.perPage, "per_page", 100, "Tasks page size")
	flag.IntVar(&config.apiRateLimit, "api_rate_limit", 5, "Max Contele API requests per second (0 disables)")
	flag.IntVar(&config.syncIntervalMinutes, "sync_interval_minutes", 60, "Minutes between periodic syncs")
	flag.StringVar(&config.syncRequestQueueURL, "sync_request_queue_url", "", "Optional SQS queue `URL` for on-demand sync requests")
	flag.StringVar(&config.tuningFile, "tuning_file", "", "Optional TOML tuning file `path`")
}

func main() {
	svc := boot.NewService("contelesync", nil)

	if config.dbURL == "" {
		golog.Fatalf("-database_url flag required")
	}
	if config.formsBase == "" || config.formsBearer == "" {
		golog.Fatalf("Configure at least the forms API (-contele_forms_base/-contele_forms_bearer)")
	}
	year := time.Now().Year()
	if config.since == "" {
		config.since = strconv.Itoa(year) + "-01-01"
	}
	if config.to == "" {
		config.to = strconv.Itoa(year) + "-12-31"
	}

	db, err := dbutil.ConnectPostgresURL(config.dbURL, 10, 5)
	if err != nil {
		golog.Fatalf("Failed to connect to database: %s", err)
	}

	var apiLimiter ratelimit.RateLimiter
	if config.apiRateLimit > 0 {
		apiLimiter = ratelimit.NewSingle(ratelimit.NewLocalKeyed(config.apiRateLimit, 1), "contele")
	}
	cli := contele.NewClient(contele.Config{
		V2BaseURL:       config.v2Base,
		V2Authorization: config.v2Authorization,
		V2APIKey:        config.v2APIKey,
		FormsBaseURL:    config.formsBase,
		FormsBearer:     config.formsBearer,
		PerPage:         config.perPage,
		RateLimiter:     apiLimiter,
	}, svc.MetricsRegistry.Scope("contele"))

	syncCfg := syncpkg.Config{
		Since:    config.since,
		To:       config.to,
		Timezone: config.timezone,
	}
	if config.tuningFile != "" {
		fc, err := syncpkg.LoadFileConfig(config.tuningFile)
		if err != nil {
			golog.Fatalf("Failed to load tuning file: %s", err)
		}
		fc.Apply(&syncCfg)
	}

	syncer := syncpkg.New(cli, cli, dal.New(db, clock.New()), syncCfg, svc.MetricsRegistry.Scope("sync"))

	var sqsAPI sqsiface.SQSAPI
	if config.syncRequestQueueURL != "" {
		awsSession, err := svc.AWSSession()
		if err != nil {
			golog.Fatalf("Failed to create AWS session: %s", err)
		}
		sqsAPI = sqs.New(awsSession)
	}

	w := workers.New(syncer, sqsAPI, config.syncRequestQueueURL,
		time.Duration(config.syncIntervalMinutes)*time.Minute, svc.MetricsRegistry.Scope("workers"))
	w.Start()
	defer w.Stop(time.Second * 30)

	boot.WaitForTermination()
}
