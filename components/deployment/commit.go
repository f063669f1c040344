package deployment

import (
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodecommit"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/customresources"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/pkg/errors"

	"ecs_fargate_cicd/components/naming"
	"ecs_fargate_cicd/components/service"
)

const (
	TaskDefinitionFile = "taskdef.json"
	AppSpecFile        = "appspec.yaml"
)

// newConfigCommit pushes the initial taskdef.json and appspec.yaml to the
// deployment config repository. The commit is only made on create; later
// revisions are committed by hand.
func newConfigCommit(stack constructs.Construct, namer naming.Namer, repo awscodecommit.Repository, branch string, svc *service.Service) (customresources.AwsCustomResource, error) {
	taskDefinition, err := svc.TaskDefinitionDocument()
	if err != nil {
		return nil, errors.Wrap(err, "render task definition")
	}
	appSpec, err := svc.AppSpecDocument()
	if err != nil {
		return nil, errors.Wrap(err, "render appspec")
	}

	role := awsiam.NewRole(stack, jsii.String(namer.Name("create-commit-role")), &awsiam.RoleProps{
		RoleName:  jsii.String(namer.Name("create-commit-role")),
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		InlinePolicies: &map[string]awsiam.PolicyDocument{
			namer.Name("create-commit-policy"): awsiam.NewPolicyDocument(&awsiam.PolicyDocumentProps{
				Statements: &[]awsiam.PolicyStatement{
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions:   jsii.Strings("codecommit:CreateCommit"),
						Resources: jsii.Strings(*repo.RepositoryArn()),
						Effect:    awsiam.Effect_ALLOW,
					}),
					awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
						Actions: jsii.Strings(
							"logs:CreateLogGroup",
							"logs:CreateLogStream",
							"logs:PutLogEvents",
						),
						Resources: jsii.Strings("*"),
						Effect:    awsiam.Effect_ALLOW,
					}),
				},
			}),
		},
	})

	commit := customresources.NewAwsCustomResource(stack, jsii.String(namer.Name("create-commit")), &customresources.AwsCustomResourceProps{
		OnCreate: &customresources.AwsSdkCall{
			Service: jsii.String("CodeCommit"),
			Action:  jsii.String("createCommit"),
			Parameters: map[string]interface{}{
				"branchName":     branch,
				"repositoryName": repo.RepositoryName(),
				"commitMessage":  "Initial appspec and taskdef files.",
				"putFiles": []interface{}{
					map[string]interface{}{
						"filePath":    TaskDefinitionFile,
						"fileMode":    "NORMAL",
						"fileContent": taskDefinition,
					},
					map[string]interface{}{
						"filePath":    AppSpecFile,
						"fileMode":    "NORMAL",
						"fileContent": appSpec,
					},
				},
			},
			PhysicalResourceId: customresources.PhysicalResourceId_Of(jsii.String(namer.Name("create-commit"))),
		},
		Role:                role,
		InstallLatestAwsSdk: jsii.Bool(false),
	})

	commit.Node().AddDependency(repo)

	return commit, nil
}
