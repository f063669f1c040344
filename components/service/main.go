package service

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapplicationautoscaling"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/listener"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
	"ecs_fargate_cicd/components/params"
)

type Props struct {
	Namer    naming.Namer
	Ecs      params.EcsParams
	Network  *network.Network
	Listener *listener.ListenerConfig
}

type Service struct {
	Cluster       awsecs.Cluster
	TaskDef       awsecs.FargateTaskDefinition
	Container     awsecs.ContainerDefinition
	Service       awsecs.FargateService
	ExecutionRole awsiam.Role
	TaskRole      awsiam.Role
	LogGroup      awslogs.LogGroup
	Scaling       awsecs.ScalableTaskCount

	namer  naming.Namer
	ecs    params.EcsParams
	region *string
}

func NewService(stack constructs.Construct, props *Props) *Service {
	namer := props.Namer
	ecs := props.Ecs

	executionRole := awsiam.NewRole(stack, jsii.String(namer.Name("execution-role")), &awsiam.RoleProps{
		RoleName:  jsii.String(namer.Name("execution-role")),
		Path:      jsii.String("/"),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			namer.Name("execution-policy"): awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings(
							"ecr:GetAuthorizationToken",
							"ecr:BatchCheckLayerAvailability",
							"ecr:GetDownloadUrlForLayer",
							"ecr:BatchGetImage",
							"logs:CreateLogStream",
							"logs:PutLogEvents",
							"cloudtrail:LookupEvents",
						),
						Resources: jsii.Strings("*"),
						Effect:    awsiam.Effect_ALLOW,
					}),
				},
			}),
		},
	})

	taskRole := awsiam.NewRole(stack, jsii.String(namer.Name("task-role")), &awsiam.RoleProps{
		RoleName:  jsii.String(namer.Name("task-role")),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
	})

	logGroup := awslogs.NewLogGroup(stack, jsii.String(namer.Name("log-group")), &awslogs.LogGroupProps{
		LogGroupName:  jsii.String("/aws/ecs/fargate/" + namer.Prefix()),
		RemovalPolicy: awscdk.RemovalPolicy_DESTROY,
		Retention:     awslogs.RetentionDays_ONE_WEEK,
	})

	cluster := awsecs.NewCluster(stack, jsii.String(namer.Name("cluster")), &awsecs.ClusterProps{
		ClusterName: jsii.String(namer.Name("cluster")),
		Vpc:         props.Network.Vpc,
	})

	taskDef := awsecs.NewFargateTaskDefinition(stack, jsii.String(namer.Name("taskdef")), &awsecs.FargateTaskDefinitionProps{
		Family:         jsii.String(namer.Family()),
		Cpu:            jsii.Number(float64(ecs.ContainerCpu)),
		MemoryLimitMiB: jsii.Number(float64(ecs.ContainerRam)),
		TaskRole:       taskRole,
		ExecutionRole:  executionRole,
	})

	environment := map[string]*string{}
	for k, v := range ecs.ContainerEnvironment {
		environment[k] = jsii.String(v)
	}

	// the bootstrap image is replaced by the pipeline's first deployment
	container := taskDef.AddContainer(jsii.String(ecs.ContainerName), &awsecs.ContainerDefinitionOptions{
		ContainerName: jsii.String(ecs.ContainerName),
		Image:         awsecs.ContainerImage_FromRegistry(jsii.String(ecs.Image), nil),
		Essential:     jsii.Bool(true),
		Environment:   &environment,
		Logging: awsecs.LogDrivers_AwsLogs(&awsecs.AwsLogDriverProps{
			LogGroup:     logGroup,
			StreamPrefix: jsii.String(namer.Prefix()),
		}),
	})

	container.AddPortMappings(&awsecs.PortMapping{
		Name:          jsii.String(ecs.ContainerName),
		ContainerPort: jsii.Number(float64(ecs.ContainerPort)),
		Protocol:      awsecs.Protocol_TCP,
	})

	service := awsecs.NewFargateService(stack, jsii.String(namer.Name("service")), &awsecs.FargateServiceProps{
		ServiceName:    jsii.String(namer.Name("service")),
		Cluster:        cluster,
		TaskDefinition: taskDef,
		DesiredCount:   jsii.Number(float64(ecs.DesiredCount)),
		AssignPublicIp: jsii.Bool(ecs.AssignPublicIp),
		SecurityGroups: &[]awsec2.ISecurityGroup{props.Network.EcsSecurityGroup},
		DeploymentController: &awsecs.DeploymentController{
			Type: awsecs.DeploymentControllerType_CODE_DEPLOY,
		},
	})

	props.Listener.ProductionTargetGroup.AddTarget(service.LoadBalancerTarget(&awsecs.LoadBalancerTargetOptions{
		ContainerName: container.ContainerName(),
		ContainerPort: jsii.Number(float64(ecs.ContainerPort)),
	}))

	// CodeDeploy swaps traffic to the deployment target group, which must exist first
	service.Node().AddDependency(props.Listener.DeploymentTargetGroup)

	scaling := service.AutoScaleTaskCount(&awsapplicationautoscaling.EnableScalingProps{
		MinCapacity: jsii.Number(float64(ecs.MinCapacity)),
		MaxCapacity: jsii.Number(float64(ecs.MaxCapacity)),
	})

	scaling.ScaleOnCpuUtilization(jsii.String(namer.Name("cpu-scaling")), &awsecs.CpuUtilizationScalingProps{
		PolicyName:               jsii.String(namer.Name("cpu-scaling")),
		TargetUtilizationPercent: jsii.Number(ecs.CpuThreshold),
		DisableScaleIn:           jsii.Bool(false),
	})

	return &Service{
		Cluster:       cluster,
		TaskDef:       taskDef,
		Container:     container,
		Service:       service,
		ExecutionRole: executionRole,
		TaskRole:      taskRole,
		LogGroup:      logGroup,
		Scaling:       scaling,
		namer:         namer,
		ecs:           ecs,
		region:        awscdk.Stack_Of(stack).Region(),
	}
}

// TaskDefinitionDocument renders taskdef.json for the CodeDeploy action. Role
// ARNs, the log group name and the region are tokens resolved at deploy time.
func (s *Service) TaskDefinitionDocument() (string, error) {
	return RenderTaskDefinition(TaskDefinitionInput{
		Family:           s.namer.Family(),
		ExecutionRoleArn: *s.ExecutionRole.RoleArn(),
		TaskRoleArn:      *s.TaskRole.RoleArn(),
		ContainerName:    s.ecs.ContainerName,
		ContainerPort:    s.ecs.ContainerPort,
		Cpu:              s.ecs.ContainerCpu,
		Memory:           s.ecs.ContainerRam,
		Environment:      s.ecs.ContainerEnvironment,
		LogGroup:         *s.LogGroup.LogGroupName(),
		Region:           *s.region,
		StreamPrefix:     s.namer.Prefix(),
	})
}

// AppSpecDocument renders appspec.yaml for the CodeDeploy action.
func (s *Service) AppSpecDocument() (string, error) {
	return RenderAppSpec(s.ecs.ContainerName, s.ecs.ContainerPort)
}
