package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ecs_fargate_cicd/components/config"
	"ecs_fargate_cicd/components/fargate"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
)

type EcsFargateCiCdStackProps struct {
	awscdk.StackProps
	Config *config.Config
	Logger *zap.Logger
}

func NewEcsFargateCiCdStack(scope constructs.Construct, id string, props *EcsFargateCiCdStackProps) (awscdk.Stack, error) {
	if props == nil || props.Config == nil {
		return nil, errors.New("stack config is required")
	}
	sprops := props.StackProps
	stack := awscdk.NewStack(scope, &id, &sprops)

	cfg := props.Config
	logger := props.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	net := network.NewNetwork(stack, &network.Props{
		Namer:         naming.New(cfg.ResourceName),
		LoadBalancer:  cfg.LoadBalancer,
		ContainerPort: cfg.Ecs.ContainerPort,
	})

	fargateProps := &fargate.Props{
		Prefix:         cfg.ResourceName,
		Network:        net,
		Ecs:            cfg.Ecs,
		Listener:       cfg.Listener,
		Pipeline:       cfg.Pipeline,
		ProductionPort: cfg.LoadBalancer.ProductionPort,
		TestPort:       cfg.LoadBalancer.TestPort,
		Logger:         logger,
	}
	// plain HTTP on port 80 redirects to the production listener
	if net.HTTPS() {
		fargateProps.ProductionRedirectPort = 80
	}

	if _, err := fargate.NewEcsFargateWithCiCd(stack, fargateProps); err != nil {
		return nil, err
	}

	return stack, nil
}

func main() {
	os.Exit(run())
}

// run returns the process exit code. jsii is closed before main exits.
func run() int {
	defer jsii.Close()

	if err := synth(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		return 1
	}
	return 0
}

func synth() error {
	// 環境変数読み込み
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	app := awscdk.NewApp(nil)

	cfg, err := config.Load(config.Chain(contextLookup(app), config.EnvLookup), os.Environ())
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("configuration loaded", cfg.Fields()...)

	stackName := naming.New(cfg.ResourceName).Name("stack")
	if _, err := NewEcsFargateCiCdStack(app, stackName, &EcsFargateCiCdStackProps{
		StackProps: awscdk.StackProps{
			Env: env(cfg),
		},
		Config: cfg,
		Logger: logger,
	}); err != nil {
		return errors.Wrapf(err, "build %s", stackName)
	}

	app.Synth(nil)
	logger.Info("synthesized", zap.String("stack", stackName))

	return nil
}

// contextLookup reads CDK context values, e.g. -c resource_name=MyApp for
// RESOURCE_NAME.
func contextLookup(app awscdk.App) config.Lookup {
	return func(key string) string {
		value := app.Node().TryGetContext(jsii.String(strings.ToLower(strcase.ToSnake(key))))
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}
}

// env pins the stack to an account and region; unset values leave the stack
// environment agnostic.
func env(cfg *config.Config) *awscdk.Environment {
	e := &awscdk.Environment{}
	if cfg.AccountID != "" {
		e.Account = jsii.String(cfg.AccountID)
	}
	if cfg.Region != "" {
		e.Region = jsii.String(cfg.Region)
	}
	return e
}
