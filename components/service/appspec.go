package service

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TaskDefinitionPlaceholder is replaced by CodeDeploy with the ARN of the
// revision registered from taskdef.json.
const TaskDefinitionPlaceholder = "<TASK_DEFINITION>"

// appSpecVersion marshals as the bare float 0.0 that CodeDeploy expects.
type appSpecVersion struct{}

func (appSpecVersion) MarshalYAML() (interface{}, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "0.0"}, nil
}

type loadBalancerInfo struct {
	ContainerName string `yaml:"ContainerName"`
	ContainerPort int    `yaml:"ContainerPort"`
}

type targetServiceProperties struct {
	TaskDefinition   string           `yaml:"TaskDefinition"`
	LoadBalancerInfo loadBalancerInfo `yaml:"LoadBalancerInfo"`
}

type targetService struct {
	Type       string                  `yaml:"Type"`
	Properties targetServiceProperties `yaml:"Properties"`
}

type appSpec struct {
	Version   appSpecVersion             `yaml:"version"`
	Resources []map[string]targetService `yaml:"Resources"`
}

// RenderAppSpec renders the appspec.yaml document of an ECS blue/green deployment.
func RenderAppSpec(containerName string, containerPort int) (string, error) {
	if containerName == "" {
		return "", errors.New("appspec container name is required")
	}

	doc := appSpec{
		Resources: []map[string]targetService{{
			"TargetService": {
				Type: "AWS::ECS::Service",
				Properties: targetServiceProperties{
					TaskDefinition: TaskDefinitionPlaceholder,
					LoadBalancerInfo: loadBalancerInfo{
						ContainerName: containerName,
						ContainerPort: containerPort,
					},
				},
			},
		}},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", errors.Wrap(err, "encode appspec")
	}
	if err := enc.Close(); err != nil {
		return "", errors.Wrap(err, "encode appspec")
	}
	return buf.String(), nil
}
