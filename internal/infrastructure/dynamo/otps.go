package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/mealtrack-api/internal/domain"
)

// OTPRepo manages one-time verification codes.
// PK: user_id — one item per user. A PutItem replaces any prior item for the
// same key in a single atomic write, which is what keeps the
// one-live-code-per-user invariant under concurrent resends.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, c *domain.OneTimeCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *OTPRepo) Get(ctx context.Context, userID string) (*domain.OneTimeCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var c domain.OneTimeCode
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *OTPRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}
