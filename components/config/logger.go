package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ecs_fargate_cicd/components/params"
)

// NewLogger builds a console logger writing to stderr so synth output on
// stdout stays clean.
func NewLogger(level string) (*zap.Logger, error) {
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, errors.Wrapf(err, "parse LOG_LEVEL %q", level)
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core), nil
}

// Fields summarises the configuration for logging. Container and build
// environment values are left out since they may hold secrets.
func (c *Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("resource_name", c.ResourceName),
		zap.String("region", c.Region),
		zap.String("container", c.Ecs.ContainerName),
		zap.Int("cpu", c.Ecs.ContainerCpu),
		zap.Int("memory", c.Ecs.ContainerRam),
		zap.Int("production_port", c.LoadBalancer.ProductionPort),
		zap.Int("test_port", c.LoadBalancer.TestPort),
		zap.Bool("https", c.LoadBalancer.HTTPS()),
		zap.String("deployment_config", c.Pipeline.DeploymentConfig),
		zap.Strings("container_env_keys", params.SortedKeys(c.Ecs.ContainerEnvironment)),
		zap.Strings("build_env_keys", params.SortedKeys(c.Pipeline.BuildEnvironment)),
	}
}
