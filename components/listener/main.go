package listener

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
	"ecs_fargate_cicd/components/params"
)

type Props struct {
	Namer    naming.Namer
	Network  *network.Network
	Ecs      params.EcsParams
	Listener params.ListenerParams

	ProductionPort int
	TestPort       int
	// Plain HTTP ports redirecting to the HTTPS listeners; 0 disables the
	// redirect. Ignored without a certificate.
	ProductionRedirectPort int
	TestRedirectPort       int
}

// ListenerConfig holds the production (blue) and deployment (green) sides of
// a blue/green load balancer setup.
type ListenerConfig struct {
	ProductionListener    awselasticloadbalancingv2.ApplicationListener
	TestListener          awselasticloadbalancingv2.ApplicationListener
	ProductionTargetGroup awselasticloadbalancingv2.ApplicationTargetGroup
	DeploymentTargetGroup awselasticloadbalancingv2.ApplicationTargetGroup
	// Rules are nil unless a rule condition is configured.
	ProductionRule awselasticloadbalancingv2.ApplicationListenerRule
	DeploymentRule awselasticloadbalancingv2.ApplicationListenerRule
}

func NewListenerConfig(stack constructs.Construct, props *Props) *ListenerConfig {
	namer := props.Namer
	net := props.Network

	// prod tg
	productionTargetGroup := newTargetGroup(stack, namer.Name("prod-tg"), net, props.Ecs)

	// deploy tg (blue/green)
	deploymentTargetGroup := newTargetGroup(stack, namer.Name("deploy-tg"), net, props.Ecs)

	cfg := &ListenerConfig{
		ProductionTargetGroup: productionTargetGroup,
		DeploymentTargetGroup: deploymentTargetGroup,
	}

	if !props.Listener.HasCondition() {
		cfg.ProductionListener = net.NewListener(namer.Name("prod-listener"), props.ProductionPort, forward(productionTargetGroup))
		cfg.TestListener = net.NewListener(namer.Name("test-listener"), props.TestPort, forward(deploymentTargetGroup))
	} else {
		cfg.ProductionListener = net.NewListener(namer.Name("prod-listener"), props.ProductionPort, nil)
		cfg.TestListener = net.NewListener(namer.Name("test-listener"), props.TestPort, nil)

		cfg.ProductionRule = newRule(stack, namer.Name("prod-rule"), cfg.ProductionListener, productionTargetGroup, props.Listener)
		cfg.DeploymentRule = newRule(stack, namer.Name("deploy-rule"), cfg.TestListener, deploymentTargetGroup, props.Listener)
	}

	if net.HTTPS() {
		if props.ProductionRedirectPort != 0 {
			net.NewRedirectListener(namer.Name("prod-redirect"), props.ProductionRedirectPort, props.ProductionPort)
		}
		if props.TestRedirectPort != 0 {
			net.NewRedirectListener(namer.Name("test-redirect"), props.TestRedirectPort, props.TestPort)
		}
	}

	return cfg
}

// newTargetGroup creates an IP target group; awsvpc tasks register by ENI
// address, not by instance.
func newTargetGroup(stack constructs.Construct, name string, net *network.Network, ecs params.EcsParams) awselasticloadbalancingv2.ApplicationTargetGroup {
	return awselasticloadbalancingv2.NewApplicationTargetGroup(stack, jsii.String(name), &awselasticloadbalancingv2.ApplicationTargetGroupProps{
		TargetGroupName: jsii.String(name),
		Vpc:             net.Vpc,
		Port:            jsii.Number(float64(ecs.ContainerPort)),
		Protocol:        awselasticloadbalancingv2.ApplicationProtocol_HTTP,
		TargetType:      awselasticloadbalancingv2.TargetType_IP,
		HealthCheck: &awselasticloadbalancingv2.HealthCheck{
			Path:             jsii.String(ecs.HealthCheckPath),
			HealthyHttpCodes: jsii.String(ecs.HealthyHttpCodesString()),
			Interval:         awscdk.Duration_Seconds(jsii.Number(30)),
			Timeout:          awscdk.Duration_Seconds(jsii.Number(10)),
		},
	})
}

func newRule(stack constructs.Construct, name string, l awselasticloadbalancingv2.ApplicationListener, tg awselasticloadbalancingv2.ApplicationTargetGroup, p params.ListenerParams) awselasticloadbalancingv2.ApplicationListenerRule {
	return awselasticloadbalancingv2.NewApplicationListenerRule(stack, jsii.String(name), &awselasticloadbalancingv2.ApplicationListenerRuleProps{
		Listener:   l,
		Priority:   jsii.Number(float64(p.RulePriority)),
		Conditions: Conditions(p),
		Action:     forward(tg),
	})
}

// Conditions translates the configured rule condition into listener conditions.
func Conditions(p params.ListenerParams) *[]awselasticloadbalancingv2.ListenerCondition {
	conditions := []awselasticloadbalancingv2.ListenerCondition{}
	if len(p.RulePathPatterns) > 0 {
		conditions = append(conditions, awselasticloadbalancingv2.ListenerCondition_PathPatterns(jsii.Strings(p.RulePathPatterns...)))
	}
	if len(p.RuleHostHeaders) > 0 {
		conditions = append(conditions, awselasticloadbalancingv2.ListenerCondition_HostHeaders(jsii.Strings(p.RuleHostHeaders...)))
	}
	return &conditions
}

func forward(tg awselasticloadbalancingv2.IApplicationTargetGroup) awselasticloadbalancingv2.ListenerAction {
	return awselasticloadbalancingv2.ListenerAction_Forward(&[]awselasticloadbalancingv2.IApplicationTargetGroup{tg}, nil)
}
