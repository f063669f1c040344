package pipeline

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/params"
)

// Variables every build gets from the stack. Users cannot override them.
const (
	RepositoryUriVariable = "REPOSITORY_URI"
	PipelineNameVariable  = "PIPELINE_NAME"
	RegionVariable        = "REGION"
)

// BuildCommand returns the docker build command with one --build-arg per
// entry of args, in key order.
func BuildCommand(args map[string]string) string {
	var b strings.Builder
	b.WriteString("docker build -t $REPOSITORY_URI:latest .")
	for _, key := range params.SortedKeys(args) {
		fmt.Fprintf(&b, " --build-arg %s=%s", key, args[key])
	}
	return b.String()
}

// BuildSpec builds the image, pushes it to ECR and starts the deployment
// pipeline.
func BuildSpec(args map[string]string) map[string]interface{} {
	return map[string]interface{}{
		"version": "0.2",
		"phases": map[string]interface{}{
			"pre_build": map[string]interface{}{
				"commands": []string{
					"aws ecr get-login-password --region $REGION | docker login --username AWS --password-stdin ${REPOSITORY_URI%%/*}",
				},
			},
			"build": map[string]interface{}{
				"commands": []string{BuildCommand(args)},
			},
			"post_build": map[string]interface{}{
				"commands": []string{
					"docker push $REPOSITORY_URI:latest",
					"aws codepipeline start-pipeline-execution --name $PIPELINE_NAME",
				},
			},
		},
	}
}

// BuildEnvironment merges user variables with the base ones. Reserved names
// always take the base value.
func BuildEnvironment(base, user map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(user))
	for k, v := range user {
		switch k {
		case RepositoryUriVariable, PipelineNameVariable, RegionVariable:
			continue
		}
		env[k] = v
	}
	for k, v := range base {
		env[k] = v
	}
	return env
}

func environmentVariables(env map[string]string) *map[string]*awscodebuild.BuildEnvironmentVariable {
	vars := make(map[string]*awscodebuild.BuildEnvironmentVariable, len(env))
	for k, v := range env {
		vars[k] = &awscodebuild.BuildEnvironmentVariable{
			Type:  awscodebuild.BuildEnvironmentVariableType_PLAINTEXT,
			Value: jsii.String(v),
		}
	}
	return &vars
}
