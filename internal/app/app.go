package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"mailsift/internal/aggregate"
	"mailsift/internal/classify"
	"mailsift/internal/config"
	"mailsift/internal/export"
	"mailsift/internal/filter"
	"mailsift/internal/geo"
	"mailsift/internal/report"
	"mailsift/internal/support"
)

const defaultLogFile = "/var/log/maillog"

// Run resolves the configuration from .env, environment and flags, then
// executes one analysis pass.
func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found. Falling back to system environment variables.")
	}

	if support.GetEnv("MAILSIFT_DEBUG", "") != "" {
		log.SetLevel(log.DebugLevel)
	}

	fileFlag := flag.String("file", support.GetEnv("MAILSIFT_LOG_FILE", defaultLogFile), "log file to parse")
	actionFlag := flag.String("action", support.GetEnv("MAILSIFT_ACTION_FILTER", ""),
		"action filter with operators | and &, e.g. 'PREGREET&DNSBL|HANGUP'")
	ipFlag := flag.String("ip", "", "only consider lines containing this substring (typically an IP)")
	yearFlag := flag.Int("year", support.GetEnvInt("MAILSIFT_YEAR", time.Now().Year()),
		"year of the logs, for syslog timestamps that omit it")
	rfc3339Flag := flag.Bool("rfc3339", false,
		"timestamps use the RFC3339 format instead of the syslog format")
	reportFlag := flag.String("report", support.GetEnv("MAILSIFT_REPORT", string(config.ReportShort)),
		"report mode: short, full, ip or none")
	geofileFlag := flag.String("geofile", support.GetEnv("MAILSIFT_GEOFILE", ""),
		"path to a MaxMind GeoLite2-City database, enables geolocation")
	mapdestFlag := flag.String("mapdest", "", "write an HTML map of blocked clients to this path (requires -geofile)")
	mapMinConnFlag := flag.Int64("map-min-conn", 0, "only map clients that connected at least this many times")
	sqliteFlag := flag.String("sqlite", support.GetEnv("MAILSIFT_SQLITE", ""),
		"write the results to a SQLite database at this path")
	workersFlag := flag.Int("workers", support.GetEnvInt("MAILSIFT_WORKERS", 1),
		"ingest worker count; clients are sharded by IP hash")
	flag.Parse()

	mode, err := config.ParseReportMode(*reportFlag)
	if err != nil {
		return err
	}

	cfg := config.Config{
		LogFile:      *fileFlag,
		ActionFilter: *actionFlag,
		IPFilter:     *ipFlag,
		Year:         *yearFlag,
		RFC3339:      *rfc3339Flag,
		ReportMode:   mode,
		GeoFile:      *geofileFlag,
		MapDest:      *mapdestFlag,
		MapMinConn:   *mapMinConnFlag,
		SQLitePath:   *sqliteFlag,
		Workers:      *workersFlag,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return runAnalysis(cfg, os.Stdout)
}

// runAnalysis is the composition root proper: classify, aggregate, summarize,
// render. Split from Run so tests can drive it with a fixed Config.
func runAnalysis(cfg config.Config, out io.Writer) error {
	var locator geo.Locator
	if cfg.GeoFile != "" {
		maxmind, err := geo.OpenMaxMind(cfg.GeoFile)
		if err != nil {
			return err
		}
		defer maxmind.Close()
		locator = maxmind
		log.Info("geolocation enabled", "database", cfg.GeoFile)
	}

	logFile, err := os.Open(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("app: open log file: %w", err)
	}
	defer logFile.Close()

	if cfg.IPFilter != "" {
		log.Info("filtering results", "substring", cfg.IPFilter)
	}

	classifier := classify.New(cfg.RFC3339, cfg.Year)
	pipeline := aggregate.NewPipeline(classifier, locator, cfg.IPFilter, cfg.Workers)
	clients, err := pipeline.Run(logFile)
	if err != nil {
		return err
	}
	log.Debug("ingestion complete", "clients", len(clients))

	expression := filter.Compile(cfg.ActionFilter)
	summary := report.Summarize(clients, expression, locator != nil)

	switch cfg.ReportMode {
	case config.ReportFull:
		report.WriteClientDetails(out, clients, locator != nil)
		report.WriteReport(out, summary, locator != nil)
	case config.ReportIP:
		report.WriteClientDetails(out, clients, locator != nil)
	case config.ReportShort:
		report.WriteReport(out, summary, locator != nil)
	case config.ReportNone:
	}

	if cfg.MapDest != "" {
		if err := report.WriteMap(cfg.MapDest, clients, summary, cfg.MapMinConn); err != nil {
			return err
		}
		log.Info("created HTML map file", "path", cfg.MapDest, "blocked", len(summary.BlockedIPs))
	}

	if cfg.SQLitePath != "" {
		if err := export.WriteSQLite(cfg.SQLitePath, clients, summary); err != nil {
			return err
		}
	}

	return nil
}
