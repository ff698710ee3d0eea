package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// MongoRepo stores every kind in one collection, discriminated by "kind".
// The flattened "assets" array is indexed so reference checks stay cheap.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "featured", Value: 1}}},
		{Keys: bson.D{{Key: "assets.bucket", Value: 1}, {Key: "assets.key", Value: 1}}},
	})
	if err != nil {
		logger.Warnf("content indexes on %s not created, reference checks will scan: %v", col.Name(), err)
	}
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Insert(ctx context.Context, it *content.Item) (*content.Item, error) {
	doc := it.Clone()
	content.Normalize(&doc.Body)
	doc.ID = primitive.NewObjectID().Hex()
	doc.Assets = doc.Body.Assets()
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (m *MongoRepo) Get(ctx context.Context, kind content.Kind, id string) (*content.Item, error) {
	var d content.Item
	err := m.col.FindOne(ctx, bson.M{"_id": id, "kind": kind}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(kind, id)
		}
		return nil, err
	}
	return &d, nil
}

func listFilter(kind content.Kind, f content.Filter) bson.M {
	filter := bson.M{"kind": kind}
	if f.Featured != nil {
		filter["featured"] = *f.Featured
	}
	if f.Category != "" {
		filter[string(kind)+".category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Category) + "$", "$options": "i"}
	}
	return filter
}

func (m *MongoRepo) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	filter := listFilter(kind, f)
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*content.Item{}
	for cur.Next(ctx) {
		var d content.Item
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

// updateSet builds the $set document for p. The patch body is replaced by
// its normalized copy so the caller can apply the same values locally.
func updateSet(p *content.Patch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Body != nil {
		b := p.Body.Clone()
		content.Normalize(&b)
		p.Body = &b
		switch {
		case b.Event != nil:
			set["event"] = b.Event
		case b.Partner != nil:
			set["partner"] = b.Partner
		case b.Circle != nil:
			set["circle"] = b.Circle
		case b.Gallery != nil:
			set["gallery"] = b.Gallery
		case b.Slider != nil:
			set["slider"] = b.Slider
		case b.Social != nil:
			set["social"] = b.Social
		}
		assets := b.Assets()
		if assets == nil {
			assets = []content.AssetRef{}
		}
		set["assets"] = assets
	}
	if p.Featured != nil {
		set["featured"] = *p.Featured
	}
	return set
}

func (m *MongoRepo) Update(ctx context.Context, kind content.Kind, id string, p content.Patch) (*content.Item, *content.Item, error) {
	now := time.Now().UTC()
	set := updateSet(&p, now)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	var prev content.Item
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "kind": kind}, bson.M{"$set": set}, opts).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, notFound(kind, id)
		}
		return nil, nil, err
	}
	next := prev.Clone()
	p.Apply(next)
	next.UpdatedAt = now
	return &prev, next, nil
}

func (m *MongoRepo) Delete(ctx context.Context, kind content.Kind, id string) (*content.Item, error) {
	var d content.Item
	err := m.col.FindOneAndDelete(ctx, bson.M{"_id": id, "kind": kind}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notFound(kind, id)
		}
		return nil, err
	}
	return &d, nil
}

// referencedFilter matches documents holding any of keys in bucket. Bucket
// and key must match within the same array element.
func referencedFilter(bucket string, keys []string, exceptID string) bson.M {
	filter := bson.M{
		"assets": bson.M{"$elemMatch": bson.M{"bucket": bucket, "key": bson.M{"$in": keys}}},
	}
	if exceptID != "" {
		filter["_id"] = bson.M{"$ne": exceptID}
	}
	return filter
}

func keysUnderFilter(bucket, prefix string) bson.M {
	return bson.M{
		"assets": bson.M{"$elemMatch": bson.M{"bucket": bucket, "key": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}},
	}
}

func (m *MongoRepo) ReferencedKeys(ctx context.Context, bucket string, keys []string, exceptID string) (map[string]bool, error) {
	out := map[string]bool{}
	if len(keys) == 0 {
		return out, nil
	}
	filter := referencedFilter(bucket, keys, exceptID)
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	err := m.eachAssets(ctx, filter, func(a content.AssetRef) {
		if a.Bucket == bucket && want[a.Key] {
			out[a.Key] = true
		}
	})
	return out, err
}

func (m *MongoRepo) KeysUnder(ctx context.Context, bucket, prefix string) (map[string]bool, error) {
	out := map[string]bool{}
	filter := keysUnderFilter(bucket, prefix)
	err := m.eachAssets(ctx, filter, func(a content.AssetRef) {
		if a.Bucket == bucket && len(a.Key) >= len(prefix) && a.Key[:len(prefix)] == prefix {
			out[a.Key] = true
		}
	})
	return out, err
}

func (m *MongoRepo) eachAssets(ctx context.Context, filter bson.M, fn func(content.AssetRef)) error {
	cur, err := m.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"assets": 1}))
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d struct {
			Assets []content.AssetRef `bson:"assets"`
		}
		if err := cur.Decode(&d); err != nil {
			return err
		}
		for _, a := range d.Assets {
			fn(a)
		}
	}
	return cur.Err()
}
