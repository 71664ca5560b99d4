package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/mealtrack-api/internal/config"
	"github.com/mealtrack-api/internal/infrastructure/queue"
)

// Publisher is the SNS-backed notification channel: verification tasks are
// published to a topic and delivered by whatever is subscribed downstream.
// Selected with NOTIFY_DRIVER=sns; same wire format as the Redis queue.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	if cfg.SNSTopicARN == "" {
		return nil, fmt.Errorf("SNS_TOPIC_ARN is required for the sns notify driver")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg), topicARN: cfg.SNSTopicARN}, nil
}

func (p *Publisher) EnqueueVerificationEmail(ctx context.Context, email string, code int) error {
	payload, err := json.Marshal(queue.Task{Type: queue.TaskVerificationEmail, To: email, Code: code})
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
	})
	return err
}
