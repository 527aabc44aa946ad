package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/wallarm/gotestflow/internal/browser"
	"github.com/wallarm/gotestflow/internal/config"
	"github.com/wallarm/gotestflow/internal/db"
	"github.com/wallarm/gotestflow/internal/fixture"
	"github.com/wallarm/gotestflow/internal/helpers"
	"github.com/wallarm/gotestflow/internal/openapi"
	"github.com/wallarm/gotestflow/internal/payload"
	"github.com/wallarm/gotestflow/internal/pipeline"
	"github.com/wallarm/gotestflow/internal/platform"
	"github.com/wallarm/gotestflow/internal/report"
	"github.com/wallarm/gotestflow/internal/scenario"
	"github.com/wallarm/gotestflow/internal/session"
	"github.com/wallarm/gotestflow/internal/snapshot"
	"github.com/wallarm/gotestflow/internal/version"
)

// errRunFailed is returned when the run completed but some checks failed.
var errRunFailed = errors.New("some checks failed")

func main() {
	logger := logrus.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		logger.WithField("signal", sig).Info("run canceled")
		cancel()
	}()

	args, err := parseFlags()
	if err != nil {
		logger.WithError(err).Error("couldn't parse flags")
		os.Exit(1)
	}

	logger.SetLevel(logLevel)
	if logFormat == jsonLogFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if quiet {
		logger.SetOutput(io.Discard)
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("couldn't load config")
		os.Exit(1)
	}

	cfg.Args = args

	if cfg.Login {
		err = login(ctx, cfg, logger)
	} else {
		err = run(ctx, cfg, logger)
	}

	if errors.Is(err, errRunFailed) {
		logger.Error("GoTestFlow finished with failures")
		os.Exit(1)
	}
	if err != nil {
		logger.WithError(err).Error("caught error in main function")
		os.Exit(1)
	}
}

func browserOptions(cfg *config.Config, headers map[string]string) browser.Options {
	return browser.Options{
		Headless:      cfg.ChromeHeadless,
		WindowWidth:   cfg.WindowWidth,
		WindowHeight:  cfg.WindowHeight,
		Proxy:         cfg.Proxy,
		TLSVerify:     cfg.TLSVerify,
		Headers:       headers,
		ActionTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	}
}

// login signs in through the login form and saves the storage state.
func login(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	mail, err := helpers.ValidateEmail(cfg.Mail)
	if err != nil {
		return errors.Wrap(err, "couldn't validate login e-mail")
	}

	password := cfg.Password
	if password == "" {
		if !terminal.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("PASSWORD is not set and the session is not interactive")
		}

		fmt.Print("Password: ")
		raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return errors.Wrap(err, "couldn't read password")
		}
		password = strings.TrimSpace(string(raw))
	}

	headers, err := requestHeaders(cfg)
	if err != nil {
		return err
	}

	b, err := browser.New(ctx, logger, cfg.URL, browserOptions(cfg, headers))
	if err != nil {
		return errors.Wrap(err, "couldn't start browser")
	}
	defer b.Close()

	state, err := b.Login(ctx,
		browser.Credentials{Mail: mail, Password: password},
		browser.LoginSelectors{
			Mail:     cfg.LoginSelectors.Mail,
			Password: cfg.LoginSelectors.Password,
			Submit:   cfg.LoginSelectors.Submit,
			Ready:    cfg.LoginSelectors.Ready,
		},
		pollOptions(cfg),
	)
	if err != nil {
		return errors.Wrap(err, "couldn't sign in")
	}

	if err = state.Save(cfg.AuthFile); err != nil {
		return errors.Wrap(err, "couldn't save credentials")
	}

	logger.WithFields(logrus.Fields{
		"file":    cfg.AuthFile,
		"cookies": len(state.Cookies),
	}).Info("Credentials saved")

	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	logger.WithField("version", version.Version).Info("GoTestFlow started")

	headers, err := requestHeaders(cfg)
	if err != nil {
		return err
	}

	var validator pipeline.ResponseValidator

	if cfg.OpenAPIFile != "" {
		openapiDoc, router, err := openapi.LoadOpenAPISpec(ctx, cfg.OpenAPIFile)
		if err != nil {
			return errors.Wrap(err, "couldn't load OpenAPI spec")
		}

		logger.WithFields(logrus.Fields{
			"title": openapiDoc.Info.Title,
			"paths": openapiDoc.Paths.Len(),
		}).Info("OpenAPI spec loaded")

		validator = openapi.NewValidator(logger, router)
	}

	logger.Info("Test cases loading started")

	testCases, err := db.LoadTestCases(cfg)
	if err != nil {
		return errors.Wrap(err, "loading test case")
	}
	if len(testCases) == 0 {
		return errors.Errorf("no test cases found in %s", cfg.TestCasesPath)
	}

	logger.WithField("cases", len(testCases)).Info("Test cases loading finished")

	store := db.NewDB(testCases)

	fixtures := make(map[*db.Case][]fixture.Record, len(testCases))
	needBrowser := cfg.CustomerID == "" || report.IsPdfReportFormat(cfg.ReportFormat)

	for _, tc := range testCases {
		records, err := tc.LoadFixture()
		if err != nil {
			return errors.Wrapf(err, "couldn't load fixture of %s/%s", tc.Set, tc.Name)
		}

		fixtures[tc] = records
		store.AddFixture(len(records))

		if len(tc.UI) > 0 {
			needBrowser = true
		}
	}

	var b *browser.Browser
	if needBrowser {
		b, err = browser.New(ctx, logger, cfg.URL, browserOptions(cfg, headers))
		if err != nil {
			return errors.Wrap(err, "couldn't start browser")
		}
		defer b.Close()
	}

	var source session.CustomerIDSource = session.StaticCustomerID(cfg.CustomerID)
	if cfg.CustomerID == "" {
		source = &browser.SessionStorageSource{Browser: b, Poll: pollOptions(cfg)}
	}

	sess, err := session.Open(ctx, logger, cfg.URL, cfg.AuthFile, source, session.Options{
		TLSVerify: cfg.TLSVerify,
		Proxy:     cfg.Proxy,
		Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
		Headers:   headers,
	})
	if err != nil {
		return errors.Wrap(err, "couldn't open session")
	}
	defer sess.Close()

	if b != nil && cfg.CustomerID != "" {
		state, err := session.LoadStorageState(cfg.AuthFile)
		if err != nil {
			return err
		}
		if err = b.ApplyStorageState(ctx, state); err != nil {
			return errors.Wrap(err, "couldn't apply credentials to browser")
		}
	}

	var bar *progressbar.ProgressBar
	if !cfg.NoProgress && !quiet && store.GetNumberOfRecords() > 0 {
		bar = platform.NewProgressBar(int(store.GetNumberOfRecords()), os.Stderr)
	}

	opts := []pipeline.Option{pipeline.WithObserver(platform.RecordObserver(bar, store.AddOutcome))}
	if validator != nil {
		opts = append(opts, pipeline.WithValidator(validator))
	}
	p := pipeline.New(logger, sess, opts...)

	vars := payload.Vars{payload.CustomerIDPlaceholder: sess.CustomerID()}

	store.Info.URL = cfg.URL
	store.Info.StartTime = time.Now()

	for _, tc := range testCases {
		if err = ctx.Err(); err != nil {
			return err
		}

		logger := logger.WithFields(logrus.Fields{
			"test_set":  tc.Set,
			"test_case": tc.Name,
		})

		if tc.HasAPI() {
			logger.WithField("records", len(fixtures[tc])).Info("Verifying records")

			rep, err := p.Run(ctx, tc.Pipeline, fixtures[tc])
			logger.WithFields(logrus.Fields{
				"passed":    rep.Count(pipeline.StatusPassed),
				"failed":    rep.Count(pipeline.StatusFailed),
				"not_found": rep.Count(pipeline.StatusNotFound),
				"errors":    rep.Count(pipeline.StatusError),
			}).Info("Records verified")
			if err != nil {
				logger.WithError(err).Error("Case stopped")
				store.AddCaseError(tc.Set, tc.Name, err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
		}

		if len(tc.UI) > 0 {
			logger.WithField("steps", len(tc.UI)).Info("Running UI steps")

			snapshots := snapshot.NewStore(logger.Logger,
				filepath.Join(cfg.ArtifactsPath, tc.Set, tc.Name),
				snapshotOptions(cfg),
			)
			runner := scenario.NewRunner(logger.Logger, scenario.FromBrowser(b), snapshots, pollOptions(cfg), vars)

			result, err := runner.Run(ctx, tc.Name, tc.UI)
			store.AddUIResult(tc.Set, result)
			if err != nil {
				logger.WithError(err).Error("Case stopped")
				store.AddCaseError(tc.Set, tc.Name, err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}

	store.Info.EndTime = time.Now()
	if bar != nil {
		_ = bar.Finish()
	}

	_, err = os.Stat(cfg.ReportPath)
	if os.IsNotExist(err) {
		if makeErr := os.MkdirAll(cfg.ReportPath, 0700); makeErr != nil {
			return errors.Wrap(makeErr, "creating dir")
		}
	}

	reportTime := time.Now()
	reportName := reportTime.Format(cfg.ReportName)
	reportFile := filepath.Join(cfg.ReportPath, reportName)

	outcomesFile := reportFile + ".csv"
	if err = store.ExportOutcomes(outcomesFile); err != nil {
		return errors.Wrap(err, "outcomes exporting")
	}
	logger.WithField("filename", outcomesFile).Info("Export record outcomes")

	stat := store.GetStatistics()
	meta := &report.Meta{
		ProjectName: cfg.ProjectName,
		URL:         cfg.URL,
		OpenAPIFile: cfg.OpenAPIFile,
		Args:        cfg.Args,
		ReportTime:  reportTime,
	}

	err = report.RenderConsoleReport(os.Stdout, stat, meta, logFormat)
	if err != nil {
		return err
	}

	if !report.IsNoneReportFormat(cfg.ReportFormat) {
		var printer report.PDFPrinter
		if b != nil {
			printer = b
		}

		reportFiles, err := report.ExportFullReport(ctx, stat, reportFile, meta, cfg.ReportFormat, printer)
		if err != nil {
			return errors.Wrap(err, "couldn't export full report")
		}

		for _, file := range reportFiles {
			reportExt := strings.ToUpper(strings.Trim(filepath.Ext(file), "."))
			logger.WithField("filename", file).Infof("Export %s full report", reportExt)
		}
	}

	if store.Failed() {
		return errRunFailed
	}

	return nil
}
