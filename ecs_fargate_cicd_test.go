package main

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"

	"ecs_fargate_cicd/components/config"
)

func TestEcsFargateCiCdStack(t *testing.T) {
	// GIVEN
	app := awscdk.NewApp(nil)
	cfg, err := config.Load(config.MapLookup(map[string]string{
		"RESOURCE_NAME": "Wordpress",
		"ACCOUNT_ID":    "123456789012",
		"REGION":        "eu-west-1",
	}), []string{"CONTAINER_ENV_WP_DEBUG=false"})
	require.NoError(t, err)

	// WHEN
	stack, err := NewEcsFargateCiCdStack(app, "Wordpress-stack", &EcsFargateCiCdStackProps{
		StackProps: awscdk.StackProps{
			Env: env(cfg),
		},
		Config: cfg,
	})
	require.NoError(t, err)

	// THEN
	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::LoadBalancer"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::CodeDeploy::Application"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port": 80,
	})
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port": 8080,
	})
	template.HasResourceProperties(jsii.String("AWS::ECS::TaskDefinition"), map[string]interface{}{
		"ContainerDefinitions": []interface{}{
			assertions.Match_ObjectLike(&map[string]interface{}{
				"Name": "wordpress",
				"Environment": []interface{}{
					map[string]interface{}{"Name": "WP_DEBUG", "Value": "false"},
				},
			}),
		},
	})
	template.HasOutput(jsii.String("*"), map[string]interface{}{
		"Description": "The endpoint url of a loadbalancer.",
	})
}

func TestEnvLeavesUnsetValuesAgnostic(t *testing.T) {
	e := env(&config.Config{Region: "eu-west-1"})
	require.Nil(t, e.Account)
	require.Equal(t, "eu-west-1", *e.Region)
}

func TestEcsFargateCiCdStackWithDomain(t *testing.T) {
	// GIVEN
	app := awscdk.NewApp(nil)
	cfg, err := config.Load(config.MapLookup(map[string]string{
		"RESOURCE_NAME":    "Wordpress",
		"ACCOUNT_ID":       "123456789012",
		"REGION":           "eu-west-1",
		"DOMAIN_NAME":      "app.example.com",
		"HOSTED_ZONE_NAME": "example.com",
	}), nil)
	require.NoError(t, err)

	// WHEN
	stack, err := NewEcsFargateCiCdStack(app, "Wordpress-stack", &EcsFargateCiCdStackProps{
		StackProps: awscdk.StackProps{
			Env: env(cfg),
		},
		Config: cfg,
	})
	require.NoError(t, err)

	// THEN
	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), jsii.Number(3))
	for _, port := range []int{443, 8443} {
		template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
			"Port":         port,
			"Protocol":     "HTTPS",
			"Certificates": assertions.Match_AnyValue(),
		})
	}
	template.HasResourceProperties(jsii.String("AWS::ElasticLoadBalancingV2::Listener"), map[string]interface{}{
		"Port":     80,
		"Protocol": "HTTP",
		"DefaultActions": []interface{}{
			map[string]interface{}{
				"Type": "redirect",
				"RedirectConfig": map[string]interface{}{
					"Protocol":   "HTTPS",
					"Host":       "#{host}",
					"Path":       "/#{path}",
					"Port":       "443",
					"Query":      "#{query}",
					"StatusCode": "HTTP_301",
				},
			},
		},
	})
	template.HasResourceProperties(jsii.String("AWS::CertificateManager::Certificate"), map[string]interface{}{
		"DomainName":       "app.example.com",
		"ValidationMethod": "DNS",
	})
	template.HasResourceProperties(jsii.String("AWS::Route53::RecordSet"), map[string]interface{}{
		"Type":        "A",
		"AliasTarget": assertions.Match_AnyValue(),
	})
}

func TestNewEcsFargateCiCdStackRequiresConfig(t *testing.T) {
	app := awscdk.NewApp(nil)

	_, err := NewEcsFargateCiCdStack(app, "Nil-stack", nil)
	require.ErrorContains(t, err, "stack config is required")

	_, err = NewEcsFargateCiCdStack(app, "Empty-stack", &EcsFargateCiCdStackProps{})
	require.ErrorContains(t, err, "stack config is required")
}
