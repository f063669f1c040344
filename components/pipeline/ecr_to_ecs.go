package pipeline

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodecommit"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodedeploy"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/deployment"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
)

// ImagePlaceholder names the image artifact inside taskdef.json.
const ImagePlaceholder = "IMAGE1_NAME"

type ecrToEcsProps struct {
	namer            naming.Namer
	pipeline         params.PipelineParams
	artifacts        awss3.IBucket
	ecr              awsecr.IRepository
	configRepository awscodecommit.IRepository
	deploymentGroup  awscodedeploy.IEcsDeploymentGroup
}

// newEcrToEcs deploys every image pushed to ECR with a blue/green CodeDeploy
// deployment.
func newEcrToEcs(stack constructs.Construct, props *ecrToEcsProps) awscodepipeline.Pipeline {
	namer := props.namer

	imageOutput := awscodepipeline.NewArtifact(jsii.String("EcsImage"), nil)
	configOutput := awscodepipeline.NewArtifact(jsii.String("EcsConfig"), nil)

	ecrSource := awscodepipelineactions.NewEcrSourceAction(&awscodepipelineactions.EcrSourceActionProps{
		ActionName: jsii.String("EcrSource"),
		Repository: props.ecr,
		ImageTag:   jsii.String("latest"),
		Output:     imageOutput,
		RunOrder:   jsii.Number(1),
	})

	configSource := awscodepipelineactions.NewCodeCommitSourceAction(&awscodepipelineactions.CodeCommitSourceActionProps{
		ActionName: jsii.String("EcsConfigSource"),
		Repository: props.configRepository,
		Branch:     jsii.String(props.pipeline.SourceBranch),
		Output:     configOutput,
		Trigger:    awscodepipelineactions.CodeCommitTrigger_NONE,
		RunOrder:   jsii.Number(1),
	})

	stages := []*awscodepipeline.StageProps{
		{
			StageName: jsii.String("SourceStage"),
			Actions:   &[]awscodepipeline.IAction{ecrSource, configSource},
		},
	}

	if props.pipeline.RequireApproval {
		approval := &awscodepipelineactions.ManualApprovalActionProps{
			ActionName:            jsii.String("Approval"),
			AdditionalInformation: jsii.String("Approve to deploy the new image of " + namer.Prefix() + "."),
		}
		if props.pipeline.NotificationEmail != "" {
			approval.NotifyEmails = jsii.Strings(props.pipeline.NotificationEmail)
		}
		stages = append(stages, &awscodepipeline.StageProps{
			StageName: jsii.String("ApprovalStage"),
			Actions:   &[]awscodepipeline.IAction{awscodepipelineactions.NewManualApprovalAction(approval)},
		})
	}

	deploy := awscodepipelineactions.NewCodeDeployEcsDeployAction(&awscodepipelineactions.CodeDeployEcsDeployActionProps{
		ActionName:                 jsii.String("EcsDeploy"),
		DeploymentGroup:            props.deploymentGroup,
		AppSpecTemplateFile:        configOutput.AtPath(jsii.String(deployment.AppSpecFile)),
		TaskDefinitionTemplateFile: configOutput.AtPath(jsii.String(deployment.TaskDefinitionFile)),
		ContainerImageInputs: &[]*awscodepipelineactions.CodeDeployEcsContainerImageInput{
			{
				Input:                     imageOutput,
				TaskDefinitionPlaceholder: jsii.String(ImagePlaceholder),
			},
		},
		RunOrder: jsii.Number(1),
	})

	stages = append(stages, &awscodepipeline.StageProps{
		StageName: jsii.String("DeployStage"),
		Actions:   &[]awscodepipeline.IAction{deploy},
	})

	return awscodepipeline.NewPipeline(stack, jsii.String(namer.Name("ecr-to-ecs")), &awscodepipeline.PipelineProps{
		PipelineName:   jsii.String(namer.Name("ecr-to-ecs")),
		ArtifactBucket: props.artifacts,
		Stages:         &stages,
	})
}
