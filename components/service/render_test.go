package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func taskDefinitionInput() TaskDefinitionInput {
	return TaskDefinitionInput{
		Family:           "wordpress",
		ExecutionRoleArn: "arn:aws:iam::123456789012:role/Wordpress-execution-role",
		TaskRoleArn:      "arn:aws:iam::123456789012:role/Wordpress-task-role",
		ContainerName:    "wordpress",
		ContainerPort:    80,
		Cpu:              256,
		Memory:           512,
		Environment:      map[string]string{"WP_HOME": "https://example.com", "DB_HOST": "db"},
		LogGroup:         "/aws/ecs/fargate/Wordpress",
		Region:           "eu-west-1",
		StreamPrefix:     "Wordpress",
	}
}

func TestRenderTaskDefinition(t *testing.T) {
	doc, err := RenderTaskDefinition(taskDefinitionInput())
	require.NoError(t, err)

	require.Contains(t, doc, `"image": "<IMAGE1_NAME>"`)
	require.NotContains(t, doc, `\u003c`)
	require.False(t, strings.HasSuffix(doc, "\n"))
	require.Contains(t, doc, "\n    \"executionRoleArn\"")

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	require.Equal(t, "256", parsed["cpu"])
	require.Equal(t, "512", parsed["memory"])
	require.Equal(t, "awsvpc", parsed["networkMode"])
	require.Equal(t, []interface{}{"FARGATE"}, parsed["requiresCompatibilities"])
	require.Equal(t, "wordpress", parsed["family"])

	containers := parsed["containerDefinitions"].([]interface{})
	require.Len(t, containers, 1)
	container := containers[0].(map[string]interface{})
	require.Equal(t, "wordpress", container["name"])
	require.Equal(t, true, container["essential"])
	require.Equal(t, []interface{}{
		map[string]interface{}{"name": "DB_HOST", "value": "db"},
		map[string]interface{}{"name": "WP_HOME", "value": "https://example.com"},
	}, container["environment"])
	require.Equal(t, []interface{}{map[string]interface{}{"containerPort": float64(80)}}, container["portMappings"])

	logs := container["logConfiguration"].(map[string]interface{})
	require.Equal(t, "awslogs", logs["logDriver"])
	require.Equal(t, map[string]interface{}{
		"awslogs-group":         "/aws/ecs/fargate/Wordpress",
		"awslogs-region":        "eu-west-1",
		"awslogs-stream-prefix": "Wordpress",
	}, logs["options"])
}

func TestRenderTaskDefinitionWithoutEnvironment(t *testing.T) {
	in := taskDefinitionInput()
	in.Environment = nil
	in.TaskRoleArn = ""

	doc, err := RenderTaskDefinition(in)
	require.NoError(t, err)
	require.Contains(t, doc, `"environment": []`)
	require.NotContains(t, doc, "taskRoleArn")
}

func TestRenderTaskDefinitionErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*TaskDefinitionInput)
		errMsg string
	}{
		{"family", func(in *TaskDefinitionInput) { in.Family = "" }, "family is required"},
		{"container", func(in *TaskDefinitionInput) { in.ContainerName = "" }, "container name is required"},
		{"execution role", func(in *TaskDefinitionInput) { in.ExecutionRoleArn = "" }, "execution role is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := taskDefinitionInput()
			tt.modify(&in)
			_, err := RenderTaskDefinition(in)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestRenderAppSpec(t *testing.T) {
	doc, err := RenderAppSpec("wordpress", 8000)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(doc, "version: 0.0\n"), doc)
	require.Contains(t, doc, "TaskDefinition: <TASK_DEFINITION>")
	require.Contains(t, doc, "Type: AWS::ECS::Service")

	var parsed struct {
		Version   float64 `yaml:"version"`
		Resources []map[string]struct {
			Type       string `yaml:"Type"`
			Properties struct {
				TaskDefinition   string `yaml:"TaskDefinition"`
				LoadBalancerInfo struct {
					ContainerName string `yaml:"ContainerName"`
					ContainerPort int    `yaml:"ContainerPort"`
				} `yaml:"LoadBalancerInfo"`
			} `yaml:"Properties"`
		} `yaml:"Resources"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &parsed))
	require.Equal(t, 0.0, parsed.Version)
	require.Len(t, parsed.Resources, 1)

	target, ok := parsed.Resources[0]["TargetService"]
	require.True(t, ok)
	require.Equal(t, "AWS::ECS::Service", target.Type)
	require.Equal(t, TaskDefinitionPlaceholder, target.Properties.TaskDefinition)
	require.Equal(t, "wordpress", target.Properties.LoadBalancerInfo.ContainerName)
	require.Equal(t, 8000, target.Properties.LoadBalancerInfo.ContainerPort)
}

func TestRenderAppSpecRequiresContainer(t *testing.T) {
	_, err := RenderAppSpec("", 80)
	require.ErrorContains(t, err, "container name is required")
}
