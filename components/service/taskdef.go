package service

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ecs_fargate_cicd/components/params"
)

// ImagePlaceholder is substituted by the CodeDeploy ECS action with the image
// pushed to ECR.
const ImagePlaceholder = "<IMAGE1_NAME>"

type TaskDefinitionInput struct {
	Family           string
	ExecutionRoleArn string
	TaskRoleArn      string
	ContainerName    string
	ContainerPort    int
	Cpu              int
	Memory           int
	Environment      map[string]string
	LogGroup         string
	Region           string
	StreamPrefix     string
}

type keyValuePair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type portMapping struct {
	ContainerPort int `json:"containerPort"`
}

type logConfiguration struct {
	LogDriver string            `json:"logDriver"`
	Options   map[string]string `json:"options"`
}

type containerDefinition struct {
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	Essential        bool             `json:"essential"`
	Environment      []keyValuePair   `json:"environment"`
	PortMappings     []portMapping    `json:"portMappings"`
	LogConfiguration logConfiguration `json:"logConfiguration"`
}

type taskDefinition struct {
	ExecutionRoleArn        string                `json:"executionRoleArn"`
	TaskRoleArn             string                `json:"taskRoleArn,omitempty"`
	ContainerDefinitions    []containerDefinition `json:"containerDefinitions"`
	RequiresCompatibilities []string              `json:"requiresCompatibilities"`
	NetworkMode             string                `json:"networkMode"`
	Cpu                     string                `json:"cpu"`
	Memory                  string                `json:"memory"`
	Family                  string                `json:"family"`
}

// RenderTaskDefinition renders the taskdef.json document CodeDeploy registers
// for every new revision.
func RenderTaskDefinition(in TaskDefinitionInput) (string, error) {
	if in.Family == "" {
		return "", errors.New("task definition family is required")
	}
	if in.ContainerName == "" {
		return "", errors.New("task definition container name is required")
	}
	if in.ExecutionRoleArn == "" {
		return "", errors.New("task definition execution role is required")
	}

	environment := make([]keyValuePair, 0, len(in.Environment))
	for _, name := range params.SortedKeys(in.Environment) {
		environment = append(environment, keyValuePair{Name: name, Value: in.Environment[name]})
	}

	doc := taskDefinition{
		ExecutionRoleArn: in.ExecutionRoleArn,
		TaskRoleArn:      in.TaskRoleArn,
		ContainerDefinitions: []containerDefinition{{
			Name:         in.ContainerName,
			Image:        ImagePlaceholder,
			Essential:    true,
			Environment:  environment,
			PortMappings: []portMapping{{ContainerPort: in.ContainerPort}},
			LogConfiguration: logConfiguration{
				LogDriver: "awslogs",
				Options: map[string]string{
					"awslogs-group":         in.LogGroup,
					"awslogs-region":        in.Region,
					"awslogs-stream-prefix": in.StreamPrefix,
				},
			},
		}},
		RequiresCompatibilities: []string{"FARGATE"},
		NetworkMode:             "awsvpc",
		Cpu:                     strconv.Itoa(in.Cpu),
		Memory:                  strconv.Itoa(in.Memory),
		Family:                  in.Family,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// keep <IMAGE1_NAME> literal
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return "", errors.Wrap(err, "encode task definition")
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
