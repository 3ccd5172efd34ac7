package repository

import (
	"context"
	"time"

	"github.com/calima-dev/audixa/internal/domain"
	"github.com/calima-dev/audixa/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type auditLogRepository struct {
	db *mongo.Database
}

func NewAuditLogRepository(database *mongo.Database) domain.AuditLogRepository {
	return &auditLogRepository{
		db: database,
	}
}

func (r *auditLogRepository) Insert(ctx context.Context, log *domain.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	collection := r.db.Collection(db.AuditLogsCollection)

	_, err := collection.InsertOne(ctx, log)
	return err
}

func buildFilter(f domain.AuditLogFilter) bson.M {
	filter := bson.M{}

	if f.ResourceType != "" {
		filter["resource_type"] = f.ResourceType
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	createdAt := bson.M{}
	if f.Start != nil {
		createdAt["$gte"] = *f.Start
	}
	if f.End != nil {
		createdAt["$lte"] = *f.End
	}
	if len(createdAt) > 0 {
		filter["created_at"] = createdAt
	}

	return filter
}

func (r *auditLogRepository) List(ctx context.Context, f domain.AuditLogFilter, limit int64) ([]domain.AuditLog, int64, error) {
	collection := r.db.Collection(db.AuditLogsCollection)
	filter := buildFilter(f)

	// The total is counted before the cap is applied and may exceed the
	// number of records returned.
	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	logs := []domain.AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *auditLogRepository) FindByResourceID(ctx context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.AuditLog, error) {
	collection := r.db.Collection(db.AuditLogsCollection)

	filter := bson.M{"resource_id": resourceID}
	if resourceType != "" {
		filter["resource_type"] = resourceType
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []domain.AuditLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

func (r *auditLogRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(db.AuditLogsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "resource_type", Value: 1},
				{Key: "resource_id", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "resource_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "resource_type", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
