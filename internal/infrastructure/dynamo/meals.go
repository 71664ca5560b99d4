package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mealtrack-api/internal/domain"
)

// MealRepo provides typed DynamoDB operations for the meal_logs table.
// PK: meal_id; GSI user_id-eaten_at-index serves the per-user range queries.
type MealRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMealRepo(client *dynamodb.Client, tableName string) *MealRepo {
	return &MealRepo{client: client, tableName: tableName}
}

func (r *MealRepo) Put(ctx context.Context, m *domain.MealLog) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal meal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *MealRepo) Get(ctx context.Context, mealID string) (*domain.MealLog, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("meal_id", mealID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("meal not found: %w", domain.ErrNotFound)
	}
	var m domain.MealLog
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MealRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]domain.MealLog, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-eaten_at-index"),
		KeyConditionExpression: aws.String("#u = :u AND #t BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#u": "user_id",
			"#t": "eaten_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u":    &types.AttributeValueMemberS{Value: userID},
			":from": &types.AttributeValueMemberS{Value: from.UTC().Format(time.RFC3339)},
			":to":   &types.AttributeValueMemberS{Value: to.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return nil, err
	}
	var meals []domain.MealLog
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}

func (r *MealRepo) Update(ctx context.Context, mealID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("meal_id", mealID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *MealRepo) Delete(ctx context.Context, mealID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("meal_id", mealID),
	})
	return err
}
