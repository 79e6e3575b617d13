package prescription

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "prescriptions"

type repoMongo struct {
	coll *mongo.Collection
}

func NewRepo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the appointment lookup index. Safe to call on every
// start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(collectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "appointment_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("appointment_created"),
	})
	if err != nil {
		return fmt.Errorf("create prescription index: %w", err)
	}
	return nil
}

func (r *repoMongo) Create(ctx context.Context, p *Prescription) error {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = id
	}
	return nil
}

func (r *repoMongo) ListByAppointment(ctx context.Context, appointmentID string) ([]*Prescription, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"appointment_id": appointmentID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*Prescription
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
