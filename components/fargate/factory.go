package fargate

import (
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
	"ecs_fargate_cicd/components/params"
)

// Factory creates several services behind one shared load balancer. Every
// service gets its own pair of listener ports.
type Factory struct {
	stack    constructs.Construct
	network  *network.Network
	ports    *network.PortAllocator
	pipeline params.PipelineParams
	logger   *zap.Logger

	ecsPorts       *network.SecurityGroupModifier
	containerPorts map[int]bool
}

func NewFactory(stack constructs.Construct, net *network.Network, pipeline params.PipelineParams, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		stack:    stack,
		network:  net,
		ports:    network.NewPortAllocator(network.FirstListenerPort, network.EndListenerPort),
		pipeline: pipeline,
		logger:   logger,

		ecsPorts:       net.EcsPorts,
		containerPorts: map[int]bool{},
	}
}

// Reserve keeps port away from the services created later, e.g. a listener
// added outside the factory.
func (f *Factory) Reserve(port int) {
	f.ports.Reserve(port)
}

// Create builds a service with production and test listeners on freshly
// allocated ports. With HTTPS two more ports redirect plain HTTP to them.
// Nothing is allocated or added to the stack when the parameters are invalid.
func (f *Factory) Create(prefix string, ecs params.EcsParams, rule params.ListenerParams) (*EcsFargateWithCiCd, error) {
	if ecs.ContainerName == "" {
		ecs.ContainerName = naming.New(prefix).Family()
	}

	props := &Props{
		Prefix:   prefix,
		Network:  f.network,
		Ecs:      ecs.Defaults(),
		Listener: rule,
		Pipeline: f.pipeline.Defaults(),
		Logger:   f.logger,
	}
	if err := props.validate(); err != nil {
		return nil, err
	}

	needed := 2
	if f.network.HTTPS() {
		needed = 4
	}
	if f.ports.Remaining() < needed {
		return nil, errors.Wrapf(network.ErrPortsExhausted, "listener ports for %s", prefix)
	}

	ports := make([]int, needed)
	for i := range ports {
		port, err := f.ports.Allocate()
		if err != nil {
			return nil, errors.Wrapf(err, "listener ports for %s", prefix)
		}
		ports[i] = port
	}
	props.ProductionPort, props.TestPort = ports[0], ports[1]
	if needed == 4 {
		props.ProductionRedirectPort, props.TestRedirectPort = ports[2], ports[3]
	}

	if !f.containerPorts[props.Ecs.ContainerPort] {
		f.ecsPorts.OpenPort(props.Ecs.ContainerPort, f.network.AlbSecurityGroup, true)
		f.containerPorts[props.Ecs.ContainerPort] = true
	}

	f.logger.Info("creating fargate service",
		zap.String("prefix", prefix),
		zap.Int("production_port", props.ProductionPort),
		zap.Int("test_port", props.TestPort),
	)

	return NewEcsFargateWithCiCd(f.stack, props)
}
