package prescription

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "prescriptions"

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{col: db.Collection(collectionName)}
}

// EnsureIndexes creates the non-unique appointment_id index. Uniqueness
// is policy enforced by the link guard, not by the store.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "appointment_id", Value: 1}},
	})
	return err
}

func (r *MongoRepository) Insert(ctx context.Context, p Prescription) error {
	_, err := r.col.InsertOne(ctx, p)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*Prescription, error) {
	var p Prescription
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) GetByAppointment(ctx context.Context, appointmentID string) (*Prescription, error) {
	var p Prescription
	err := r.col.FindOne(ctx, bson.M{"appointment_id": appointmentID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) UpdateDetails(ctx context.Context, id string, payload UpdatePayload, now time.Time) (*Prescription, error) {
	set := bson.M{"updated_at": now}
	if payload.Medication != nil {
		set["medication"] = *payload.Medication
	}
	if payload.Dosage != nil {
		set["dosage"] = *payload.Dosage
	}
	if payload.DoctorNotes != nil {
		set["doctor_notes"] = *payload.DoctorNotes
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p Prescription
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) Search(ctx context.Context, filter SearchFilter) ([]Prescription, error) {
	query := bson.M{}

	if len(filter.AppointmentIDs) > 0 {
		query["appointment_id"] = bson.M{"$in": filter.AppointmentIDs}
	}
	if filter.PatientNameContains != "" {
		query["patient_name"] = containsPattern(filter.PatientNameContains)
	}
	if filter.FreeText != "" {
		pattern := containsPattern(filter.FreeText)
		query["$or"] = bson.A{
			bson.M{"medication": pattern},
			bson.M{"doctor_notes": pattern},
		}
	}
	created := bson.M{}
	if !filter.CreatedFrom.IsZero() {
		created["$gte"] = filter.CreatedFrom
	}
	if !filter.CreatedUntil.IsZero() {
		created["$lt"] = filter.CreatedUntil
	}
	if len(created) > 0 {
		query["created_at"] = created
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []Prescription
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *MongoRepository) ListRefs(ctx context.Context) ([]Ref, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "appointment_id": 1})

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var refs []Ref
	for cursor.Next(ctx) {
		var doc struct {
			ID            string `bson:"_id"`
			AppointmentID string `bson:"appointment_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		refs = append(refs, Ref{PrescriptionID: doc.ID, AppointmentID: doc.AppointmentID})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// containsPattern builds a case-insensitive substring matcher with the
// needle escaped, so user input is never interpreted as a regex.
func containsPattern(needle string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(needle), Options: "i"}
}
