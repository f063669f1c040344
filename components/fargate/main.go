package fargate

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ecs_fargate_cicd/components/listener"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
	"ecs_fargate_cicd/components/params"
	"ecs_fargate_cicd/components/pipeline"
	"ecs_fargate_cicd/components/service"
)

type Props struct {
	Prefix   string
	Network  *network.Network
	Ecs      params.EcsParams
	Listener params.ListenerParams
	Pipeline params.PipelineParams

	ProductionPort         int
	TestPort               int
	ProductionRedirectPort int
	TestRedirectPort       int

	Logger *zap.Logger
}

// EcsFargateWithCiCd is one blue/green deployed fargate service together with
// its listeners and CI/CD pipelines.
type EcsFargateWithCiCd struct {
	Listener *listener.ListenerConfig
	Service  *service.Service
	Pipeline *pipeline.EcsPipeline
}

func (p *Props) validate() error {
	if err := naming.ValidatePrefix(p.Prefix); err != nil {
		return err
	}
	if err := p.Ecs.Validate(); err != nil {
		return errors.Wrap(err, "ecs")
	}
	if err := p.Listener.Validate(); err != nil {
		return errors.Wrap(err, "listener")
	}
	if err := p.Pipeline.Validate(); err != nil {
		return errors.Wrap(err, "pipeline")
	}
	return nil
}

func NewEcsFargateWithCiCd(stack constructs.Construct, props *Props) (*EcsFargateWithCiCd, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}

	logger := props.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("prefix", props.Prefix))
	namer := naming.New(props.Prefix)

	listenerConfig := listener.NewListenerConfig(stack, &listener.Props{
		Namer:                  namer,
		Network:                props.Network,
		Ecs:                    props.Ecs,
		Listener:               props.Listener,
		ProductionPort:         props.ProductionPort,
		TestPort:               props.TestPort,
		ProductionRedirectPort: props.ProductionRedirectPort,
		TestRedirectPort:       props.TestRedirectPort,
	})
	logger.Debug("listeners created",
		zap.Int("production_port", props.ProductionPort),
		zap.Int("test_port", props.TestPort),
		zap.Bool("https", props.Network.HTTPS()),
		zap.Bool("rule_condition", props.Listener.HasCondition()),
	)

	svc := service.NewService(stack, &service.Props{
		Namer:    namer,
		Ecs:      props.Ecs,
		Network:  props.Network,
		Listener: listenerConfig,
	})
	logger.Debug("service created",
		zap.String("container", props.Ecs.ContainerName),
		zap.Int("cpu", props.Ecs.ContainerCpu),
		zap.Int("memory", props.Ecs.ContainerRam),
	)

	ecsPipeline, err := pipeline.NewEcsPipeline(stack, &pipeline.Props{
		Namer:    namer,
		Pipeline: props.Pipeline,
		Listener: listenerConfig,
		Service:  svc,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "pipeline for %s", props.Prefix)
	}
	logger.Debug("pipeline created",
		zap.String("branch", props.Pipeline.SourceBranch),
		zap.String("deployment_config", props.Pipeline.DeploymentConfig),
		zap.Bool("approval", props.Pipeline.RequireApproval),
	)

	return &EcsFargateWithCiCd{
		Listener: listenerConfig,
		Service:  svc,
		Pipeline: ecsPipeline,
	}, nil
}
