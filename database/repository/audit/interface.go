package auditRepo

import (
	"context"

	"innkeeper/config"
	"innkeeper/database"
	"innkeeper/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// Recorder appends lock lifecycle events to a durable, append-only trail.
// Callers treat failures as non-fatal.
type Recorder interface {
	Record(ctx context.Context, entry models.LockAuditEntry) error
	ByLockKey(ctx context.Context, lockKey string) ([]models.LockAuditEntry, error)
}

type mongoAuditRepo struct {
	coll *mongo.Collection
}

// NewMongoAuditRepo returns a new Recorder instance using MongoDB.
func NewMongoAuditRepo() Recorder {
	db := database.MongoClient.Database(config.AppConfig.DatabaseName)
	return &mongoAuditRepo{
		coll: db.Collection("lock_audit"),
	}
}
