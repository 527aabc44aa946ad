package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wallarm/gotestflow/internal/config"
	"github.com/wallarm/gotestflow/internal/poll"
	"github.com/wallarm/gotestflow/internal/report"
	"github.com/wallarm/gotestflow/internal/version"
)

const (
	textLogFormat = "text"
	jsonLogFormat = "json"
)

var (
	logFormatsSet = map[string]any{
		textLogFormat: nil,
		jsonLogFormat: nil,
	}
	logFormats = slices.Sorted(maps.Keys(logFormatsSet))
)

const (
	maxReportFilenameLength = 249 // 255 (max length) - 5 (".html") - 1 (to be sure)

	defaultReportPath    = "reports"
	defaultReportName    = "gotestflow-report-2006-January-02-15-04-05"
	defaultTestCasesPath = "testcases"
	defaultArtifactsPath = "artifacts"
	defaultAuthFile      = "playwright/.auth/user.json"
	defaultConfigPath    = "config.yaml"
	defaultEnvPath       = ".env"
)

const cliDescription = `GoTestFlow verifies that records imported through a web application's
bulk endpoint are stored as submitted, and that its screens render as recorded.
Homepage: https://github.com/wallarm/gotestflow

Usage: %s [OPTIONS] --url <URL>

Options:
`

var (
	configPath string
	envPath    string
	quiet      bool
	logLevel   logrus.Level
	logFormat  string
)

var usage = func() {
	flag.CommandLine.SetOutput(os.Stdout)
	fmt.Fprintf(os.Stdout, cliDescription, os.Args[0])
	flag.PrintDefaults()
}

// parseFlags parses all GoTestFlow CLI flags
func parseFlags() (args []string, err error) {
	reportPath := filepath.Join(".", defaultReportPath)
	testCasesPath := filepath.Join(".", defaultTestCasesPath)
	artifactsPath := filepath.Join(".", defaultArtifactsPath)

	flag.Usage = usage

	// General parameters
	flag.StringVar(&configPath, "configPath", defaultConfigPath, "Path to the config file")
	flag.StringVar(&envPath, "envPath", defaultEnvPath, "Path to the .env file with MAIL and PASSWORD")
	flag.BoolVar(&quiet, "quiet", false, "If present, disable verbose logging")
	logLvl := flag.String("logLevel", "info", "Logging level: panic, fatal, error, warn, info, debug, trace")
	flag.StringVar(&logFormat, "logFormat", textLogFormat, "Set logging format: "+strings.Join(logFormats, ", "))
	showVersion := flag.Bool("version", false, "Show GoTestFlow version and exit")

	// Target settings
	urlParam := flag.String("url", "", "Base URL of the application under test")
	flag.String("openapiFile", "", "Path to an OpenAPI file to validate API responses against")

	// Session settings
	flag.String("authFile", defaultAuthFile, "Path to the stored credentials (storage state JSON)")
	flag.String("customerID", "", "Customer id to use instead of the one stored by the application")
	flag.Bool("login", false, "Sign in through the login form, save the credentials to authFile and exit")
	flag.String("mail", "", "Login e-mail (MAIL)")

	// Login form settings
	flag.String("loginSelectors.mail", "input[type=email]", "Selector of the login e-mail input")
	flag.String("loginSelectors.password", "input[type=password]", "Selector of the login password input")
	flag.String("loginSelectors.submit", "button[type=submit]", "Selector of the login submit button")
	flag.String("loginSelectors.ready", "", "Selector displayed once the user is signed in")

	// Test cases settings
	flag.String("testCase", "", "If set then only this test case will be run")
	flag.String("testCasesPath", testCasesPath, "Path to a folder with test cases")
	flag.String("testSet", "", "If set then only this test set's cases will be run")
	flag.String("artifactsPath", artifactsPath, "A directory to store snapshot baselines and captures")

	// HTTP client settings
	flag.Bool("tlsVerify", false, "If present, the received TLS certificate will be verified")
	flag.String("proxy", "", "Proxy URL to use")
	flag.String("addHeader", "", "An HTTP header to add to requests")
	flag.Int("requestTimeout", 30, "API request timeout in seconds")

	// Browser settings
	flag.Bool("chromeHeadless", true, "If present, run Chrome without a window")
	flag.Int("windowWidth", 1280, "Browser window width")
	flag.Int("windowHeight", 1024, "Browser window height")

	// Convergence settings
	flag.Int("pollInterval", int(poll.DefaultInterval.Milliseconds()), "Delay in ms between a UI action and its re-check")
	flag.Int("pollMaxAttempts", poll.DefaultMaxAttempts, "The number of attempts before a UI state is considered stuck")

	// Snapshot settings
	flag.Int("settleDelay", 1500, "Delay in ms before a snapshot is captured")
	flag.Float64("maxDiffPixelRatio", 0.01, "Allowed fraction of differing pixels")
	flag.Float64("pixelThreshold", 0.1, "Per-channel tolerance of a single pixel (0..1)")

	// Report settings
	flag.String("projectName", "", "Name of the project in the report")
	flag.String("reportPath", reportPath, "A directory to store reports")
	reportName := flag.String("reportName", defaultReportName, "Report file name. Supports `time' package template format")
	reportFormat := flag.StringSlice("reportFormat", []string{report.HtmlFormat}, "Export report in the following formats: "+strings.Join(report.ReportFormats, ", "))
	flag.Bool("noProgress", false, "If present, hide the progress bar")

	flag.Parse()

	if len(os.Args) == 1 {
		usage()
		os.Exit(0)
	}

	// show version and exit
	if *showVersion {
		fmt.Fprintf(os.Stderr, "GoTestFlow %s\n", version.Version)
		os.Exit(0)
	}

	// url flag must be set
	if *urlParam == "" {
		return nil, errors.New("--url flag is not set")
	}

	logrusLogLvl, err := logrus.ParseLevel(*logLvl)
	if err != nil {
		return nil, err
	}
	logLevel = logrusLogLvl

	if err = validateLogFormat(logFormat); err != nil {
		return nil, err
	}

	if err = report.ValidateReportFormat(*reportFormat); err != nil {
		return nil, err
	}

	validURL, err := validateURL(*urlParam, httpProto)
	if err != nil {
		return nil, errors.Wrap(err, "URL is not valid")
	}
	*urlParam = validURL.String()

	_, reportFileName := filepath.Split(*reportName)
	if len(reportFileName) > maxReportFilenameLength {
		return nil, errors.New("report filename too long")
	}

	args, err = normalizeArgs()
	if err != nil {
		return nil, errors.Wrap(err, "couldn't normalize args")
	}

	return args, nil
}

// normalizeArgs returns string with used CLI args in a unified from.
func normalizeArgs() ([]string, error) {
	// disable lexicographical order
	flag.CommandLine.SortFlags = false

	var (
		args []string
		err  error
	)

	fn := func(f *flag.Flag) {
		// skip if flag wasn't changed
		if !f.Changed {
			return
		}

		var (
			value string
			arg   string
		)

		// all types listed in parseFlags function
		argType := f.Value.Type()
		switch argType {
		case "string":
			value = strings.TrimSpace(f.Value.String())

			if f.Name == "mail" {
				value = "***"
			}
			if strings.Contains(value, " ") {
				value = `"` + value + `"`
			}

			arg = fmt.Sprintf("--%s=%s", f.Name, value)

		case "stringSlice":
			// remove square brackets: [pdf,json] -> pdf,json
			value = strings.Trim(f.Value.String(), "[]")
			arg = fmt.Sprintf("--%s=%s", f.Name, value)

		case "bool":
			arg = fmt.Sprintf("--%s=%s", f.Name, f.Value.String())

		case "int", "float64":
			value = f.Value.String()
			arg = fmt.Sprintf("--%s=%s", f.Name, value)

		default:
			err = multierror.Append(err, fmt.Errorf("unknown CLI argument type: %s", argType))
		}

		args = append(args, arg)
	}

	// get all changed flags
	flag.Visit(fn)

	if err != nil {
		return nil, err
	}

	return args, nil
}

// loadConfig loads the .env and config files and merges them with the
// parameters passed via CLI
func loadConfig() (cfg *config.Config, err error) {
	if _, statErr := os.Stat(envPath); statErr == nil {
		if err = godotenv.Load(envPath); err != nil {
			return nil, errors.Wrap(err, "couldn't load .env file")
		}
	}

	err = viper.BindPFlags(flag.CommandLine)
	if err != nil {
		return nil, err
	}
	if err = viper.BindEnv("mail", "MAIL"); err != nil {
		return nil, err
	}
	if err = viper.BindEnv("password", "PASSWORD"); err != nil {
		return nil, err
	}

	viper.AddConfigPath(".")
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = logLevel.String()
	cfg.LogFormat = logFormat
	cfg.Quiet = quiet

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
