package config

import (
	"os"
	"runtime"
	"time"

	"github.com/criyle/go-runner/envexec"
	"github.com/koding/multiconfig"
)

// Config defines go runner server configuration
type Config struct {
	// workspace
	Dir           string        `flagUsage:"specifies directory to materialize submissions (temp dir by default)"`
	WorkspaceTTL  time.Duration `flagUsage:"specifies age after which an orphan workspace is removed" default:"10m"`
	SweepInterval time.Duration `flagUsage:"specifies orphan workspace sweep interval" default:"1m"`

	// toolchain
	GoCmd        string `flagUsage:"specifies the go toolchain command" default:"go"`
	RunArgs      string `flagUsage:"specifies arguments for plain run before the file" default:"run"`
	TestArgs     string `flagUsage:"specifies arguments for test run" default:"test -v ./..."`
	BenchArgs    string `flagUsage:"specifies extra arguments when benchmarks are present" default:"-bench=. -benchtime=100ms"`
	ToolchainEnv string `flagUsage:"specifies extra environment for the toolchain" default:"GOTOOLCHAIN=local"`

	// runner limit
	Parallelism int           `flagUsage:"control the # of concurrency execution (default equal to number of cpu)"`
	TimeLimit   time.Duration `flagUsage:"specifies wall clock limit for each execution" default:"15s"`
	OutputLimit *envexec.Size `flagUsage:"specifies combined stdout and stderr limit for each execution" default:"1m"`
	BodyLimit   *envexec.Size `flagUsage:"specifies request body limit" default:"10m"`

	// server config
	HTTPAddr      string `flagUsage:"specifies the http binding address" default:":3001"`
	MonitorAddr   string `flagUsage:"specifies the metrics binding address" default:":3002"`
	CORSOrigins   string `flagUsage:"specifies allowed CORS origins separated by space" default:"*"`
	EnableH2C     bool   `flagUsage:"enable cleartext HTTP/2 on the http binding address"`
	EnableDebug   bool   `flagUsage:"enable debug endpoint"`
	EnableMetrics bool   `flagUsage:"enable promethus metrics endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "GR",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "GR",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return nil
}
