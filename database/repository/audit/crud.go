package auditRepo

import (
	"context"
	"time"

	"innkeeper/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Record inserts a new audit entry. Entries are never updated or deleted.
func (r *mongoAuditRepo) Record(ctx context.Context, entry models.LockAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := r.coll.InsertOne(ctx, entry)
	return err
}

// ByLockKey returns the audit trail for a single lock, oldest first.
func (r *mongoAuditRepo) ByLockKey(ctx context.Context, lockKey string) ([]models.LockAuditEntry, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"lockKey": lockKey}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.LockAuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
