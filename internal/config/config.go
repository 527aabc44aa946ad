package config

type Config struct {
	// Target settings
	URL         string `mapstructure:"url" validate:"required,url"`
	OpenAPIFile string `mapstructure:"openapiFile"`

	// Session settings
	AuthFile   string `mapstructure:"authFile" validate:"required"`
	CustomerID string `mapstructure:"customerID" validate:"omitempty,printascii"`
	Login      bool   `mapstructure:"login"`
	Mail       string `mapstructure:"mail"`
	Password   string `mapstructure:"password"`

	// Login form settings
	LoginSelectors LoginSelectors `mapstructure:"loginSelectors"`

	// Test cases settings
	TestCase      string `mapstructure:"testCase"`
	TestCasesPath string `mapstructure:"testCasesPath" validate:"required"`
	TestSet       string `mapstructure:"testSet"`
	ArtifactsPath string `mapstructure:"artifactsPath" validate:"required"`

	// HTTP client settings
	TLSVerify      bool   `mapstructure:"tlsVerify"`
	Proxy          string `mapstructure:"proxy" validate:"omitempty,url"`
	AddHeader      string `mapstructure:"addHeader"`
	RequestTimeout int    `mapstructure:"requestTimeout" validate:"min=0"`

	// Browser settings
	ChromeHeadless bool `mapstructure:"chromeHeadless"`
	WindowWidth    int  `mapstructure:"windowWidth" validate:"min=0"`
	WindowHeight   int  `mapstructure:"windowHeight" validate:"min=0"`

	// Convergence settings
	PollInterval    int `mapstructure:"pollInterval" validate:"min=1"`
	PollMaxAttempts int `mapstructure:"pollMaxAttempts" validate:"min=1"`

	// Snapshot settings
	SettleDelay       int     `mapstructure:"settleDelay" validate:"min=0"`
	MaxDiffPixelRatio float64 `mapstructure:"maxDiffPixelRatio" validate:"min=0,max=1"`
	PixelThreshold    float64 `mapstructure:"pixelThreshold" validate:"min=0,max=1"`

	// Report settings
	ProjectName  string   `mapstructure:"projectName"`
	ReportPath   string   `mapstructure:"reportPath"`
	ReportName   string   `mapstructure:"reportName"`
	ReportFormat []string `mapstructure:"reportFormat"`
	NoProgress   bool     `mapstructure:"noProgress"`

	// config.yaml
	HTTPHeaders map[string]string `mapstructure:"headers"`

	// Other settings
	LogLevel  string `mapstructure:"logLevel" validate:"omitempty,oneof=panic fatal error warn info debug trace"`
	LogFormat string `mapstructure:"logFormat" validate:"omitempty,oneof=text json"`
	Quiet     bool   `mapstructure:"quiet"`

	Args []string
}

// LoginSelectors holds CSS selectors of the login form elements.
type LoginSelectors struct {
	Mail     string `mapstructure:"mail" validate:"required,selector"`
	Password string `mapstructure:"password" validate:"required,selector"`
	Submit   string `mapstructure:"submit" validate:"required,selector"`
	Ready    string `mapstructure:"ready" validate:"omitempty,selector"`
}
