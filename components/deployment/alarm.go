package deployment

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"ecs_fargate_cicd/components/listener"
	"ecs_fargate_cicd/components/naming"
)

// Target 5xx responses per minute that roll a deployment back.
const rollbackErrorThreshold = 5

// newRollbackAlarm watches 5xx responses of the tasks behind the production
// listener. The topic is only created when email is set.
func newRollbackAlarm(stack constructs.Construct, namer naming.Namer, cfg *listener.ListenerConfig, email string) (awscloudwatch.Alarm, awssns.Topic) {
	metric := cfg.ProductionTargetGroup.Metrics().HttpCodeTarget(awselasticloadbalancingv2.HttpCodeTarget_TARGET_5XX_COUNT, &awscloudwatch.MetricOptions{
		Period:    awscdk.Duration_Minutes(jsii.Number(1)),
		Statistic: jsii.String("Sum"),
	})

	alarm := awscloudwatch.NewAlarm(stack, jsii.String(namer.Name("5xx-alarm")), &awscloudwatch.AlarmProps{
		AlarmName:          jsii.String(namer.Name("5xx-alarm")),
		AlarmDescription:   jsii.String("Target 5xx responses of " + namer.Prefix() + "; rolls back the running deployment."),
		Metric:             metric,
		Threshold:          jsii.Number(rollbackErrorThreshold),
		EvaluationPeriods:  jsii.Number(2),
		ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
		TreatMissingData:   awscloudwatch.TreatMissingData_NOT_BREACHING,
	})

	if email == "" {
		return alarm, nil
	}

	topic := awssns.NewTopic(stack, jsii.String(namer.Name("deployment-alarms")), &awssns.TopicProps{
		TopicName:   jsii.String(namer.Name("deployment-alarms")),
		DisplayName: jsii.String(namer.Prefix() + " deployment alarms"),
	})
	topic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(email), nil))

	snsAction := awscloudwatchactions.NewSnsAction(topic)
	alarm.AddAlarmAction(snsAction)
	alarm.AddOkAction(snsAction)

	return alarm, topic
}
