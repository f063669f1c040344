package pipeline

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/constructs-go/constructs/v10"

	"ecs_fargate_cicd/components/deployment"
	"ecs_fargate_cicd/components/listener"
	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/params"
	"ecs_fargate_cicd/components/repository"
	"ecs_fargate_cicd/components/service"
)

type Props struct {
	Namer    naming.Namer
	Pipeline params.PipelineParams
	Listener *listener.ListenerConfig
	Service  *service.Service
}

// EcsPipeline is the CI/CD chain of one service: commit -> image -> blue/green
// deployment.
type EcsPipeline struct {
	Repository   *repository.Repository
	Deployment   *deployment.Deployment
	BuildProject awscodebuild.PipelineProject
	CommitToEcr  awscodepipeline.Pipeline
	EcrToEcs     awscodepipeline.Pipeline
}

func NewEcsPipeline(stack constructs.Construct, props *Props) (*EcsPipeline, error) {
	repo := repository.NewRepository(stack, props.Namer)

	deploy, err := deployment.NewDeployment(stack, &deployment.Props{
		Namer:    props.Namer,
		Pipeline: props.Pipeline,
		Listener: props.Listener,
		Service:  props.Service,
	})
	if err != nil {
		return nil, err
	}

	ecrToEcs := newEcrToEcs(stack, &ecrToEcsProps{
		namer:            props.Namer,
		pipeline:         props.Pipeline,
		artifacts:        repo.Artifacts,
		ecr:              repo.Ecr,
		configRepository: deploy.ConfigRepository,
		deploymentGroup:  deploy.DeploymentGroup,
	})
	// the config source must exist before the first execution
	ecrToEcs.Node().AddDependency(deploy.Commit)

	commitToEcr, project := newCommitToEcr(stack, &commitToEcrProps{
		namer:     props.Namer,
		pipeline:  props.Pipeline,
		artifacts: repo.Artifacts,
		source:    repo.Source,
		ecr:       repo.Ecr,
		next:      ecrToEcs,
	})

	return &EcsPipeline{
		Repository:   repo,
		Deployment:   deploy,
		BuildProject: project,
		CommitToEcr:  commitToEcr,
		EcrToEcs:     ecrToEcs,
	}, nil
}
