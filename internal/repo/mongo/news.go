package mongo

import (
	"context"
	"errors"

	"github.com/geocoder89/crimewatch/internal/domain/news"
	"github.com/geocoder89/crimewatch/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NewsRepo struct {
	col   *driver.Collection
	obs   Observer
	clock *utils.Clock
}

func NewNewsRepo(db *driver.Database, obs Observer) *NewsRepo {
	return &NewsRepo{col: db.Collection(newsCollection), obs: observerOrNoop(obs), clock: utils.NewClock()}
}

func (r *NewsRepo) Create(ctx context.Context, req news.CreateRequest) (news.Item, error) {
	item := news.NewFromCreateRequest(req, storedTime(r.clock.Now()))

	err := r.obs.ObserveDB("news.create", func() error {
		_, err := r.col.InsertOne(ctx, item)
		return err
	})
	if err != nil {
		return news.Item{}, err
	}
	return item, nil
}

func (r *NewsRepo) List(ctx context.Context, filter news.ListFilter) ([]news.Item, error) {
	opts := options.Find().SetSort(sortByTimestamp(filter.Ascending))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	out := make([]news.Item, 0)
	err := r.obs.ObserveDB("news.list", func() error {
		cur, err := r.col.Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NewsRepo) GetByID(ctx context.Context, id string) (news.Item, error) {
	var item news.Item
	err := r.obs.ObserveDB("news.get_by_id", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	})
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return news.Item{}, news.ErrNotFound
		}
		return news.Item{}, err
	}
	return item, nil
}

func (r *NewsRepo) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.obs.ObserveDB("news.count", func() error {
		var err error
		n, err = r.col.CountDocuments(ctx, bson.M{})
		return err
	})
	return int(n), err
}
