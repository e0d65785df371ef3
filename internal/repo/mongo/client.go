// Package mongo stores users, news and incidents as documents.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection     = "users"
	newsCollection      = "news"
	incidentsCollection = "incidents"
)

// Observer times a logical DB operation. observability.Prom satisfies it.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

func observerOrNoop(o Observer) Observer {
	if o == nil {
		return noopObserver{}
	}
	return o
}

// emailCollation makes email comparisons case-insensitive.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// Connect dials the server and checks it answers before returning.
func Connect(ctx context.Context, uri string) (*driver.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := driver.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repos rely on. It is idempotent.
func EnsureIndexes(ctx context.Context, db *driver.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(emailCollation),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(newsCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(incidentsCollection).Indexes().CreateOne(ctx, driver.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	return err
}

// BSON dates keep milliseconds only; truncating up front keeps returned
// values equal to what a later read yields.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func sortByTimestamp(ascending bool) bson.D {
	dir := -1
	if ascending {
		dir = 1
	}
	return bson.D{{Key: "timestamp", Value: dir}, {Key: "_id", Value: dir}}
}
