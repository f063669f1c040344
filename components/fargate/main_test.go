package fargate_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"

	"ecs_fargate_cicd/components/fargate"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/network"
	"ecs_fargate_cicd/components/params"
)

func newStack(t *testing.T) (awscdk.Stack, *network.Network) {
	t.Helper()

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String("123456789012"),
			Region:  jsii.String("eu-west-1"),
		},
	})

	net := network.NewNetwork(stack, &network.Props{
		Namer:         naming.New("Shared"),
		LoadBalancer:  params.LoadBalancerParams{}.Defaults(),
		ContainerPort: 80,
	})
	return stack, net
}

func props(net *network.Network) *fargate.Props {
	return &fargate.Props{
		Prefix:         "App",
		Network:        net,
		Ecs:            params.EcsParams{ContainerName: "app"}.Defaults(),
		Pipeline:       params.PipelineParams{}.Defaults(),
		ProductionPort: 80,
		TestPort:       8080,
	}
}

func TestEcsFargateWithCiCd(t *testing.T) {
	stack, net := newStack(t)

	f, err := fargate.NewEcsFargateWithCiCd(stack, props(net))
	require.NoError(t, err)
	require.NotNil(t, f.Service)
	require.Nil(t, f.Listener.ProductionRule)
	require.Nil(t, f.Pipeline.Deployment.Topic)

	template := assertions.Template_FromStack(stack, nil)

	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::TargetGroup"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::ListenerRule"), jsii.Number(0))
	template.ResourceCountIs(jsii.String("AWS::ECS::Service"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CodeDeploy::DeploymentGroup"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CodePipeline::Pipeline"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::CodeCommit::Repository"), jsii.Number(2))
	template.ResourceCountIs(jsii.String("AWS::CloudWatch::Alarm"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::SNS::Topic"), jsii.Number(0))

	template.HasResourceProperties(jsii.String("AWS::ECS::Service"), map[string]interface{}{
		"ServiceName": "App-service",
		"DeploymentController": map[string]interface{}{
			"Type": "CODE_DEPLOY",
		},
	})

	template.HasResourceProperties(jsii.String("AWS::ECS::TaskDefinition"), map[string]interface{}{
		"Family":                  "app",
		"Cpu":                     "256",
		"Memory":                  "512",
		"NetworkMode":             "awsvpc",
		"RequiresCompatibilities": []interface{}{"FARGATE"},
	})

	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::TargetGroup"), map[string]interface{}{
		"Name":       "App-deploy-tg",
		"TargetType": "ip",
		"Port":       80,
	})

	template.HasResourceProperties(jsii.String("AWS::CodeDeploy::DeploymentGroup"), map[string]interface{}{
		"DeploymentGroupName":  "App-deployment-group",
		"DeploymentConfigName": "CodeDeployDefault.ECSAllAtOnce",
		"DeploymentStyle": map[string]interface{}{
			"DeploymentOption": "WITH_TRAFFIC_CONTROL",
			"DeploymentType":   "BLUE_GREEN",
		},
		"AutoRollbackConfiguration": map[string]interface{}{
			"Enabled": true,
		},
		"AlarmConfiguration": assertions.Match_ObjectLike(&map[string]interface{}{
			"Enabled": true,
			"Alarms":  assertions.Match_AnyValue(),
		}),
	})

	template.HasResourceProperties(jsii.String("AWS::ECR::Repository"), map[string]interface{}{
		"RepositoryName": "app",
	})

	template.HasResourceProperties(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"BucketName": "app-fargate-artifacts",
	})

	template.HasResourceProperties(jsii.String("AWS::CodeCommit::Repository"), map[string]interface{}{
		"RepositoryName": "app-deployment-config",
	})

	template.HasResourceProperties(jsii.String("AWS::CodePipeline::Pipeline"), map[string]interface{}{
		"Name": "App-ecr-to-ecs",
		"Stages": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Name": "SourceStage"}),
			assertions.Match_ObjectLike(&map[string]interface{}{"Name": "DeployStage"}),
		},
	})

	template.HasResourceProperties(jsii.String("AWS::CodeBuild::Project"), map[string]interface{}{
		"Name": "App-build",
		"Environment": assertions.Match_ObjectLike(&map[string]interface{}{
			"PrivilegedMode": true,
		}),
	})
}

func TestEcsFargateWithCiCdRuleCondition(t *testing.T) {
	stack, net := newStack(t)

	p := props(net)
	p.Listener = params.ListenerParams{RulePriority: 10, RulePathPatterns: []string{"/api/*"}}

	f, err := fargate.NewEcsFargateWithCiCd(stack, p)
	require.NoError(t, err)
	require.NotNil(t, f.Listener.ProductionRule)
	require.NotNil(t, f.Listener.DeploymentRule)

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::ListenerRule"), jsii.Number(2))
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::ListenerRule"), map[string]interface{}{
		"Priority": 10,
		"Conditions": []interface{}{
			map[string]interface{}{
				"Field": "path-pattern",
				"PathPatternConfig": map[string]interface{}{
					"Values": []interface{}{"/api/*"},
				},
			},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port": 8080,
		"DefaultActions": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Type": "fixed-response"}),
		},
	})
}

func TestEcsFargateWithCiCdApprovalAndNotifications(t *testing.T) {
	stack, net := newStack(t)

	p := props(net)
	p.Pipeline.RequireApproval = true
	p.Pipeline.NotificationEmail = "ops@example.com"
	p.Pipeline.DeploymentConfig = "CANARY_10PERCENT_5MINUTES"

	f, err := fargate.NewEcsFargateWithCiCd(stack, p)
	require.NoError(t, err)
	require.NotNil(t, f.Pipeline.Deployment.Topic)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResourceProperties(jsii.String("AWS::CodePipeline::Pipeline"), map[string]interface{}{
		"Name": "App-ecr-to-ecs",
		"Stages": assertions.Match_ArrayWith(&[]interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{"Name": "ApprovalStage"}),
		}),
	})
	template.HasResourceProperties(jsii.String("AWS::SNS::Subscription"), map[string]interface{}{
		"Protocol": "email",
		"Endpoint": "ops@example.com",
	})
	template.HasResourceProperties(jsii.String("AWS::CodeDeploy::DeploymentGroup"), map[string]interface{}{
		"DeploymentConfigName": "CodeDeployDefault.ECSCanary10Percent5Minutes",
	})
}

func TestEcsFargateWithCiCdRejectsInvalidProps(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*fargate.Props)
		errMsg string
	}{
		{"prefix", func(p *fargate.Props) { p.Prefix = "1app" }, "must start with a letter"},
		{"ecs", func(p *fargate.Props) { p.Ecs.ContainerCpu = 300 }, "ecs: unsupported fargate cpu 300"},
		{"listener", func(p *fargate.Props) { p.Listener.RuleHostHeaders = []string{"app.example.com"} }, "listener: rule priority 0"},
		{"pipeline", func(p *fargate.Props) { p.Pipeline.DeploymentConfig = "SLOWLY" }, "pipeline: unknown deployment config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := props(nil)
			tt.modify(p)

			_, err := fargate.NewEcsFargateWithCiCd(nil, p)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

// flatten renders a CloudFormation string value, joining Fn::Join parts and
// writing intrinsic functions as JSON.
func flatten(t *testing.T, v interface{}) string {
	t.Helper()

	switch value := v.(type) {
	case string:
		return value
	case map[string]interface{}:
		if join, ok := value["Fn::Join"].([]interface{}); ok && len(join) == 2 {
			sep, _ := join[0].(string)
			parts, _ := join[1].([]interface{})
			out := make([]string, 0, len(parts))
			for _, part := range parts {
				out = append(out, flatten(t, part))
			}
			return strings.Join(out, sep)
		}
	}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestEcsFargateWithCiCdSeedsDeploymentConfig(t *testing.T) {
	stack, net := newStack(t)

	f, err := fargate.NewEcsFargateWithCiCd(stack, props(net))
	require.NoError(t, err)
	require.NotNil(t, f.Pipeline.Deployment.Commit)

	template := assertions.Template_FromStack(stack, nil)
	resources := *template.FindResources(jsii.String("Custom::AWS"), nil)
	require.Len(t, resources, 1)

	for _, resource := range resources {
		properties := resource.(map[string]interface{})["Properties"].(map[string]interface{})
		create := flatten(t, properties["Create"])

		require.Contains(t, create, `"action":"createCommit"`)
		require.Contains(t, create, `"branchName":"master"`)
		require.Contains(t, create, `"filePath":"taskdef.json"`)
		require.Contains(t, create, `"filePath":"appspec.yaml"`)
		require.Contains(t, create, "Fn::GetAtt")
	}
}
