package pipeline

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodecommit"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
)

type commitToEcrProps struct {
	namer     naming.Namer
	pipeline  params.PipelineParams
	artifacts awss3.IBucket
	source    awscodecommit.IRepository
	ecr       awsecr.IRepository
	// next is started once the image is pushed.
	next awscodepipeline.IPipeline
}

// newCommitToEcr builds a docker image on every commit to the source branch
// and pushes it to ECR.
func newCommitToEcr(stack constructs.Construct, props *commitToEcrProps) (awscodepipeline.Pipeline, awscodebuild.PipelineProject) {
	namer := props.namer

	sourceOutput := awscodepipeline.NewArtifact(jsii.String("SourceCode"), nil)

	source := awscodepipelineactions.NewCodeCommitSourceAction(&awscodepipelineactions.CodeCommitSourceActionProps{
		ActionName: jsii.String("CodeCommitSource"),
		Repository: props.source,
		Branch:     jsii.String(props.pipeline.SourceBranch),
		Output:     sourceOutput,
		Trigger:    awscodepipelineactions.CodeCommitTrigger_EVENTS,
		RunOrder:   jsii.Number(1),
	})

	env := BuildEnvironment(map[string]string{
		RepositoryUriVariable: *props.ecr.RepositoryUri(),
		PipelineNameVariable:  *props.next.PipelineName(),
		RegionVariable:        *awscdk.Stack_Of(stack).Region(),
	}, props.pipeline.BuildEnvironment)

	buildSpec := BuildSpec(props.pipeline.DockerBuildArgs)

	// privileged mode is required to run the docker daemon
	project := awscodebuild.NewPipelineProject(stack, jsii.String(namer.Name("build")), &awscodebuild.PipelineProjectProps{
		ProjectName:          jsii.String(namer.Name("build")),
		EnvironmentVariables: environmentVariables(env),
		Environment: &awscodebuild.BuildEnvironment{
			BuildImage:  awscodebuild.LinuxBuildImage_STANDARD_7_0(),
			ComputeType: awscodebuild.ComputeType_SMALL,
			Privileged:  jsii.Bool(true),
		},
		BuildSpec: awscodebuild.BuildSpec_FromObject(&buildSpec),
	})

	project.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions: jsii.Strings(
			"ecr:CompleteLayerUpload",
			"ecr:GetAuthorizationToken",
			"ecr:UploadLayerPart",
			"ecr:InitiateLayerUpload",
			"ecr:BatchCheckLayerAvailability",
			"ecr:PutImage",
			"codepipeline:StartPipelineExecution",
		),
		Resources: jsii.Strings("*"),
		Effect:    awsiam.Effect_ALLOW,
	}))

	build := awscodepipelineactions.NewCodeBuildAction(&awscodepipelineactions.CodeBuildActionProps{
		ActionName: jsii.String("BuildAction"),
		Project:    project,
		Input:      sourceOutput,
		RunOrder:   jsii.Number(1),
	})

	pipeline := awscodepipeline.NewPipeline(stack, jsii.String(namer.Name("commit-to-ecr")), &awscodepipeline.PipelineProps{
		PipelineName:   jsii.String(namer.Name("commit-to-ecr")),
		ArtifactBucket: props.artifacts,
		Stages: &[]*awscodepipeline.StageProps{
			{
				StageName: jsii.String("SourceStage"),
				Actions:   &[]awscodepipeline.IAction{source},
			},
			{
				StageName: jsii.String("BuildStage"),
				Actions:   &[]awscodepipeline.IAction{build},
			},
		},
	})

	return pipeline, project
}
