package kvstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoKV is a document Store keeping one document per pair, keyed by _id.
// The collection's unique _id index gives Create its no-duplicate-window
// guarantee.
type MongoKV struct {
	uri        string
	database   string
	collection string

	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDoc struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

func NewMongo(uri, database, collection string) *MongoKV {
	return &MongoKV{uri: uri, database: database, collection: collection}
}

func (kv *MongoKV) Connect(ctx context.Context) error {
	if kv.client != nil {
		return nil
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(kv.uri))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	kv.client = client
	kv.coll = client.Database(kv.database).Collection(kv.collection)
	return nil
}

func (kv *MongoKV) Disconnect(ctx context.Context) error {
	if kv.client == nil {
		return nil
	}
	err := kv.client.Disconnect(ctx)
	kv.client = nil
	kv.coll = nil
	return err
}

func (kv *MongoKV) Create(ctx context.Context, key string, value []byte) error {
	if kv.coll == nil {
		return ErrNotConnected
	}
	_, err := kv.coll.InsertOne(ctx, mongoDoc{Key: key, Value: value})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return translateMongoErr(err)
}

func (kv *MongoKV) Read(ctx context.Context, key string) ([]byte, error) {
	if kv.coll == nil {
		return nil, ErrNotConnected
	}
	var doc mongoDoc
	err := kv.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateMongoErr(err)
	}
	if doc.Value == nil {
		doc.Value = []byte{}
	}
	return doc.Value, nil
}

func (kv *MongoKV) Update(ctx context.Context, key string, value []byte) error {
	if kv.coll == nil {
		return ErrNotConnected
	}
	res, err := kv.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}})
	if err != nil {
		return translateMongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (kv *MongoKV) Delete(ctx context.Context, key string) error {
	if kv.coll == nil {
		return ErrNotConnected
	}
	_, err := kv.coll.DeleteOne(ctx, bson.M{"_id": key})
	return translateMongoErr(err)
}

func (kv *MongoKV) Keys(ctx context.Context) ([]string, error) {
	if kv.coll == nil {
		return nil, ErrNotConnected
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := kv.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translateMongoErr(err)
	}
	defer cur.Close(ctx)

	var keys []string
	for cur.Next(ctx) {
		var doc mongoDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		keys = append(keys, doc.Key)
	}
	return keys, cur.Err()
}

// translateMongoErr maps driver failures onto the store error taxonomy.
func translateMongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrClientDisconnected):
		return ErrNotConnected
	case mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}
