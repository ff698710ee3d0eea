package operators

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "authorized_admins"

// OperatorRepository looks up operators by e-mail.
type OperatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*Operator, error)
	// Touch records a sign-in for an existing operator. It never creates one.
	Touch(ctx context.Context, email, sub, name string) (*Operator, error)
}

// MongoOperatorRepository implements OperatorRepository using MongoDB
type MongoOperatorRepository struct {
	col *mongo.Collection
}

func NewMongoOperatorRepository(col *mongo.Collection) *MongoOperatorRepository {
	return &MongoOperatorRepository{col: col}
}

// emailFilter matches the stored address case-insensitively; rows are
// maintained by hand and keep whatever casing the admin typed.
func emailFilter(email string) bson.M {
	return bson.M{"email": bson.M{
		"$regex":   "^" + regexp.QuoteMeta(strings.TrimSpace(email)) + "$",
		"$options": "i",
	}}
}

func (r *MongoOperatorRepository) FindByEmail(ctx context.Context, email string) (*Operator, error) {
	var op Operator
	if err := r.col.FindOne(ctx, emailFilter(email)).Decode(&op); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *MongoOperatorRepository) Touch(ctx context.Context, email, sub, name string) (*Operator, error) {
	set := bson.M{"lastSeenAt": time.Now().UTC()}
	if sub != "" {
		set["sub"] = sub
	}
	if name != "" {
		set["name"] = name
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var op Operator
	err := r.col.FindOneAndUpdate(ctx, emailFilter(email), bson.M{"$set": set}, opts).Decode(&op)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}
