package network

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscertificatemanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsroute53targets"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
)

type Props struct {
	Namer        naming.Namer
	LoadBalancer params.LoadBalancerParams
	// ContainerPort is opened from the ALB to the ECS security group.
	ContainerPort int
}

type Network struct {
	Vpc              awsec2.IVpc
	AlbSecurityGroup awsec2.SecurityGroup
	EcsSecurityGroup awsec2.SecurityGroup
	Alb              awselasticloadbalancingv2.ApplicationLoadBalancer
	// Certificate is nil unless a domain name is configured.
	Certificate awscertificatemanager.ICertificate
	AlbPorts    *SecurityGroupModifier
	EcsPorts    *SecurityGroupModifier
}

func NewNetwork(stack constructs.Construct, props *Props) *Network {
	namer := props.Namer
	lb := props.LoadBalancer

	// one NAT for the bootstrap image; ECR, S3 and logs traffic goes through endpoints
	vpc := awsec2.NewVpc(stack, jsii.String(namer.Name("vpc")), &awsec2.VpcProps{
		VpcName:                      jsii.String(namer.Name("vpc")),
		MaxAzs:                       jsii.Number(2),
		NatGateways:                  jsii.Number(1),
		RestrictDefaultSecurityGroup: jsii.Bool(false),
	})

	vpc.AddGatewayEndpoint(jsii.String(namer.Name("s3-endpoint")), &awsec2.GatewayVpcEndpointOptions{
		Service: awsec2.GatewayVpcEndpointAwsService_S3(),
	})

	vpc.AddInterfaceEndpoint(jsii.String(namer.Name("ecr-api-endpoint")), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_ECR(),
	})

	vpc.AddInterfaceEndpoint(jsii.String(namer.Name("ecr-dkr-endpoint")), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_ECR_DOCKER(),
	})

	vpc.AddInterfaceEndpoint(jsii.String(namer.Name("logs-endpoint")), &awsec2.InterfaceVpcEndpointOptions{
		Service: awsec2.InterfaceVpcEndpointAwsService_CLOUDWATCH_LOGS(),
	})

	// sg for ALB; listener ports are opened as listeners are created
	albSecurityGroup := awsec2.NewSecurityGroup(stack, jsii.String(namer.Name("sg-alb")), &awsec2.SecurityGroupProps{
		SecurityGroupName: jsii.String(namer.Name("sg-alb")),
		Vpc:               vpc,
		AllowAllOutbound:  jsii.Bool(true),
	})

	// sg for ECS
	ecsSecurityGroup := awsec2.NewSecurityGroup(stack, jsii.String(namer.Name("sg-ecs")), &awsec2.SecurityGroupProps{
		SecurityGroupName: jsii.String(namer.Name("sg-ecs")),
		Vpc:               vpc,
		AllowAllOutbound:  jsii.Bool(true),
	})
	ecsPorts := NewSecurityGroupModifier(ecsSecurityGroup, namer.Name("sg-ecs"))
	ecsPorts.OpenPort(props.ContainerPort, albSecurityGroup, true)

	alb := awselasticloadbalancingv2.NewApplicationLoadBalancer(stack, jsii.String(namer.Name("alb")), &awselasticloadbalancingv2.ApplicationLoadBalancerProps{
		LoadBalancerName: jsii.String(namer.Name("alb")),
		Vpc:              vpc,
		InternetFacing:   jsii.Bool(true),
		SecurityGroup:    albSecurityGroup,
		IpAddressType:    awselasticloadbalancingv2.IpAddressType_IPV4,
	})

	awscdk.NewCfnOutput(stack, jsii.String(namer.Name("alb-url")), &awscdk.CfnOutputProps{
		Description: jsii.String("The endpoint url of a loadbalancer."),
		Value:       alb.LoadBalancerDnsName(),
	})

	network := &Network{
		Vpc:              vpc,
		AlbSecurityGroup: albSecurityGroup,
		EcsSecurityGroup: ecsSecurityGroup,
		Alb:              alb,
		AlbPorts:         NewSecurityGroupModifier(albSecurityGroup, namer.Name("sg-alb")),
		EcsPorts:         ecsPorts,
	}

	if lb.HTTPS() {
		network.Certificate = newDomain(stack, namer, lb, alb)
	}

	return network
}

// newDomain issues a DNS validated certificate and points the domain at the ALB.
func newDomain(stack constructs.Construct, namer naming.Namer, lb params.LoadBalancerParams, alb awselasticloadbalancingv2.ApplicationLoadBalancer) awscertificatemanager.ICertificate {
	hostedZone := awsroute53.HostedZone_FromLookup(stack, jsii.String(namer.Name("hosted-zone")), &awsroute53.HostedZoneProviderProps{
		DomainName: jsii.String(lb.HostedZoneName),
	})

	certificate := awscertificatemanager.NewCertificate(stack, jsii.String(namer.Name("certificate")), &awscertificatemanager.CertificateProps{
		DomainName: jsii.String(lb.DomainName),
		Validation: awscertificatemanager.CertificateValidation_FromDns(hostedZone),
	})

	awsroute53.NewARecord(stack, jsii.String(namer.Name("a-record")), &awsroute53.ARecordProps{
		Zone:       hostedZone,
		RecordName: jsii.String(lb.DomainName),
		Target:     awsroute53.RecordTarget_FromAlias(awsroute53targets.NewLoadBalancerTarget(alb, nil)),
	})

	return certificate
}
