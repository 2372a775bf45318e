package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection = "user"
	DefaultDatabase = "expense_tracker"
)

// MongoRepository stores users in the "user" collection.
type MongoRepository struct {
	client *mongodriver.Client
	db     *mongodriver.Database
	users  *mongodriver.Collection
}

var _ Repository = (*MongoRepository)(nil)

// NewMongoRepository connects, pings and ensures indexes.
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	if uri == "" {
		return nil, errors.New("mongo: empty uri")
	}
	if database == "" {
		database = DefaultDatabase
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(database)
	r := &MongoRepository{
		client: cli,
		db:     db,
		users:  db.Collection(usersCollection),
	}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = r.Close(ctx)
		return nil, err
	}
	return r, nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes creates the unique user_id and username indexes.
func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	models := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("uniq_user_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName("uniq_username").SetUnique(true),
		},
	}

	if _, err := r.users.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

// Mongo DateTime keeps milliseconds.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func liveFilter(extra ...bson.E) bson.D {
	f := bson.D{{Key: "deleted_at", Value: bson.D{{Key: "$exists", Value: false}}}}
	return append(f, extra...)
}

func (r *MongoRepository) Create(ctx context.Context, u *User) error {
	const op = "users/mongo.Create"

	doc := *u
	doc.CreatedAt = toMS(u.CreatedAt)
	doc.UpdatedAt = toMS(u.UpdatedAt)

	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, ErrUsernameTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *MongoRepository) ByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "users/mongo.ByID", liveFilter(bson.E{Key: "user_id", Value: id}))
}

func (r *MongoRepository) ByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "users/mongo.ByUsername", liveFilter(bson.E{Key: "username", Value: username}))
}

func (r *MongoRepository) findOne(ctx context.Context, op string, filter bson.D) (*User, error) {
	var u User
	if err := r.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id, username, email string, now time.Time) (*User, error) {
	const op = "users/mongo.UpdateProfile"

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "username", Value: username},
		{Key: "email", Value: email},
		{Key: "updated_at", Value: toMS(now)},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u User
	err := r.users.FindOneAndUpdate(ctx, liveFilter(bson.E{Key: "user_id", Value: id}), update, opts).Decode(&u)
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	case mongodriver.IsDuplicateKeyError(err):
		return nil, fmt.Errorf("%s: %w", op, ErrUsernameTaken)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, hash string, now time.Time) error {
	const op = "users/mongo.UpdatePassword"

	res, err := r.users.UpdateOne(ctx, liveFilter(bson.E{Key: "user_id", Value: id}), bson.D{{Key: "$set", Value: bson.D{
		{Key: "password_hash", Value: hash},
		{Key: "updated_at", Value: toMS(now)},
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// SoftDelete stamps deleted_at and frees the username by suffixing it with the user id.
func (r *MongoRepository) SoftDelete(ctx context.Context, id string, now time.Time) error {
	const op = "users/mongo.SoftDelete"

	u, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}

	res, err := r.users.UpdateOne(ctx, liveFilter(bson.E{Key: "user_id", Value: id}), bson.D{{Key: "$set", Value: bson.D{
		{Key: "deleted_at", Value: toMS(now)},
		{Key: "updated_at", Value: toMS(now)},
		{Key: "username", Value: deletedUsername(u.Username, id)},
	}}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func deletedUsername(username, id string) string {
	return username + "#deleted#" + id
}
