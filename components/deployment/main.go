package deployment

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodecommit"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodedeploy"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/customresources"
	"github.com/aws/aws-cdk-go/awscdk/v2/interfaces/interfacesawscloudwatch"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"

	"ecs_fargate_cicd/components/listener"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
	"ecs_fargate_cicd/components/service"
)

type Props struct {
	Namer    naming.Namer
	Pipeline params.PipelineParams
	Listener *listener.ListenerConfig
	Service  *service.Service
}

type Deployment struct {
	Application     awscodedeploy.EcsApplication
	DeploymentGroup awscodedeploy.EcsDeploymentGroup
	ServiceRole     awsiam.Role
	Alarm           awscloudwatch.Alarm
	// Topic is nil unless a notification email is configured.
	Topic awssns.Topic
	// ConfigRepository holds taskdef.json and appspec.yaml for the deploy action.
	ConfigRepository awscodecommit.Repository
	Commit           customresources.AwsCustomResource
}

func NewDeployment(stack constructs.Construct, props *Props) (*Deployment, error) {
	namer := props.Namer
	pipeline := props.Pipeline

	deploymentConfig, err := DeploymentConfig(pipeline.DeploymentConfig)
	if err != nil {
		return nil, err
	}

	application := awscodedeploy.NewEcsApplication(stack, jsii.String(namer.Name("deployment")), &awscodedeploy.EcsApplicationProps{
		ApplicationName: jsii.String(namer.Name("deployment")),
	})

	serviceRole := awsiam.NewRole(stack, jsii.String(namer.Name("deploy-role")), &awsiam.RoleProps{
		RoleName: jsii.String(namer.Name("deploy-role")),
		Path:     jsii.String("/"),
		AssumedBy: awsiam.NewCompositePrincipal(
			awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
			awsiam.NewServicePrincipal(jsii.String("codedeploy.amazonaws.com"), nil),
		),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("AWSCodeDeployRoleForECS")),
		},
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			namer.Name("deploy-policy"): awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings(
							"ecs:DescribeServices",
							"ecs:CreateTaskSet",
							"ecs:UpdateServicePrimaryTaskSet",
							"ecs:DeleteTaskSet",
							"elasticloadbalancing:DescribeTargetGroups",
							"elasticloadbalancing:DescribeListeners",
							"elasticloadbalancing:ModifyListener",
							"elasticloadbalancing:DescribeRules",
							"elasticloadbalancing:ModifyRule",
							"lambda:InvokeFunction",
							"cloudwatch:DescribeAlarms",
							"sns:Publish",
							"s3:GetObject",
							"s3:GetObjectMetadata",
							"s3:GetObjectVersion",
							"iam:PassRole",
						),
						Resources: jsii.Strings("*"),
						Effect:    awsiam.Effect_ALLOW,
					}),
				},
			}),
		},
	})

	alarm, topic := newRollbackAlarm(stack, namer, props.Listener, pipeline.NotificationEmail)

	deploymentGroup := awscodedeploy.NewEcsDeploymentGroup(stack, jsii.String(namer.Name("deployment-group")), &awscodedeploy.EcsDeploymentGroupProps{
		Application:         application,
		DeploymentGroupName: jsii.String(namer.Name("deployment-group")),
		Service:             props.Service.Service,
		BlueGreenDeploymentConfig: &awscodedeploy.EcsBlueGreenDeploymentConfig{
			BlueTargetGroup:     props.Listener.ProductionTargetGroup,
			GreenTargetGroup:    props.Listener.DeploymentTargetGroup,
			Listener:            props.Listener.ProductionListener,
			TestListener:        props.Listener.TestListener,
			TerminationWaitTime: awscdk.Duration_Minutes(jsii.Number(float64(pipeline.TerminationWait()))),
		},
		DeploymentConfig: deploymentConfig,
		Role:             serviceRole,
		Alarms:           &[]interfacesawscloudwatch.IAlarmRef{alarm},
		AutoRollback: &awscodedeploy.AutoRollbackConfig{
			FailedDeployment:  jsii.Bool(true),
			StoppedDeployment: jsii.Bool(true),
			DeploymentInAlarm: jsii.Bool(true),
		},
	})

	configRepository := awscodecommit.NewRepository(stack, jsii.String(namer.Name("deployment-config")), &awscodecommit.RepositoryProps{
		RepositoryName: jsii.String(namer.Family() + "-deployment-config"),
		Description:    jsii.String("Repository containing appspec and taskdef files for ecs code-deploy blue/green deployments."),
	})

	commit, err := newConfigCommit(stack, namer, configRepository, pipeline.SourceBranch, props.Service)
	if err != nil {
		return nil, err
	}

	return &Deployment{
		Application:      application,
		DeploymentGroup:  deploymentGroup,
		ServiceRole:      serviceRole,
		Alarm:            alarm,
		Topic:            topic,
		ConfigRepository: configRepository,
		Commit:           commit,
	}, nil
}

// DeploymentConfig maps a deployment configuration name to the predefined
// CodeDeploy ECS configuration.
func DeploymentConfig(name string) (awscodedeploy.IEcsDeploymentConfig, error) {
	switch name {
	case "ALL_AT_ONCE":
		return awscodedeploy.EcsDeploymentConfig_ALL_AT_ONCE(), nil
	case "LINEAR_10PERCENT_EVERY_1MINUTES":
		return awscodedeploy.EcsDeploymentConfig_LINEAR_10PERCENT_EVERY_1MINUTES(), nil
	case "LINEAR_10PERCENT_EVERY_3MINUTES":
		return awscodedeploy.EcsDeploymentConfig_LINEAR_10PERCENT_EVERY_3MINUTES(), nil
	case "CANARY_10PERCENT_5MINUTES":
		return awscodedeploy.EcsDeploymentConfig_CANARY_10PERCENT_5MINUTES(), nil
	case "CANARY_10PERCENT_15MINUTES":
		return awscodedeploy.EcsDeploymentConfig_CANARY_10PERCENT_15MINUTES(), nil
	}
	return nil, errors.Errorf("unknown deployment config %q", name)
}
