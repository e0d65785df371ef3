package mongo

import (
	"context"
	"errors"

	"github.com/geocoder89/crimewatch/internal/domain/incident"
	"github.com/geocoder89/crimewatch/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type IncidentsRepo struct {
	col   *driver.Collection
	obs   Observer
	clock *utils.Clock
}

func NewIncidentsRepo(db *driver.Database, obs Observer) *IncidentsRepo {
	return &IncidentsRepo{col: db.Collection(incidentsCollection), obs: observerOrNoop(obs), clock: utils.NewClock()}
}

func statusFilter(filter incident.ListFilter) bson.M {
	if filter.Status == nil {
		return bson.M{}
	}
	return bson.M{"status": string(*filter.Status)}
}

// updateDoc builds the $set for a status change. A nil ActionsTaken leaves
// the stored note alone.
func updateDoc(upd incident.StatusUpdate) bson.M {
	set := bson.M{"status": string(upd.Status)}
	if upd.ActionsTaken != nil {
		set["actions_taken"] = *upd.ActionsTaken
	}
	return bson.M{"$set": set}
}

func (r *IncidentsRepo) Create(ctx context.Context, req incident.ReportRequest, reporter string) (incident.Incident, error) {
	inc := incident.NewFromReport(req, reporter, storedTime(r.clock.Now()))

	err := r.obs.ObserveDB("incidents.create", func() error {
		_, err := r.col.InsertOne(ctx, inc)
		return err
	})
	if err != nil {
		return incident.Incident{}, err
	}
	return inc, nil
}

func (r *IncidentsRepo) List(ctx context.Context, filter incident.ListFilter) ([]incident.Incident, error) {
	out := make([]incident.Incident, 0)

	err := r.obs.ObserveDB("incidents.list", func() error {
		cur, err := r.col.Find(ctx, statusFilter(filter), options.Find().SetSort(sortByTimestamp(filter.Ascending)))
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

func (r *IncidentsRepo) GetByID(ctx context.Context, id string) (incident.Incident, error) {
	var inc incident.Incident
	err := r.obs.ObserveDB("incidents.get_by_id", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&inc)
	})
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}
	return inc, nil
}

func (r *IncidentsRepo) UpdateStatus(ctx context.Context, id string, upd incident.StatusUpdate) (incident.Incident, error) {
	var inc incident.Incident

	err := r.obs.ObserveDB("incidents.update_status", func() error {
		return r.col.FindOneAndUpdate(ctx,
			bson.M{"_id": id},
			updateDoc(upd),
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&inc)
	})
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return incident.Incident{}, incident.ErrNotFound
		}
		return incident.Incident{}, err
	}
	return inc, nil
}

func (r *IncidentsRepo) Count(ctx context.Context, filter incident.ListFilter) (int, error) {
	var n int64
	err := r.obs.ObserveDB("incidents.count", func() error {
		var err error
		n, err = r.col.CountDocuments(ctx, statusFilter(filter))
		return err
	})
	return int(n), err
}
