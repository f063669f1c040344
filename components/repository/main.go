package repository

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodecommit"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/naming"
)

// Repository holds the stores a pipeline reads from and writes to.
type Repository struct {
	Source    awscodecommit.Repository
	Ecr       awsecr.Repository
	Artifacts awss3.Bucket
}

func NewRepository(stack constructs.Construct, namer naming.Namer) *Repository {
	// application source code; a push to it starts the build pipeline
	source := awscodecommit.NewRepository(stack, jsii.String(namer.Name("source")), &awscodecommit.RepositoryProps{
		RepositoryName: jsii.String(namer.Name("source")),
		Description:    jsii.String("Source code of the " + namer.Prefix() + " fargate service."),
	})

	ecr := awsecr.NewRepository(stack, jsii.String(namer.Name("ecr")), &awsecr.RepositoryProps{
		RepositoryName: jsii.String(namer.Family()),
		RemovalPolicy:  awscdk.RemovalPolicy_DESTROY,
		EmptyOnDelete:  jsii.Bool(true),
	})

	// bucket names must be lower case
	artifacts := awss3.NewBucket(stack, jsii.String(namer.Name("artifacts")), &awss3.BucketProps{
		BucketName:        jsii.String(namer.Bucket("FargateArtifacts")),
		AccessControl:     awss3.BucketAccessControl_PRIVATE,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		AutoDeleteObjects: jsii.Bool(true),
	})

	return &Repository{
		Source:    source,
		Ecr:       ecr,
		Artifacts: artifacts,
	}
}
