package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geocoder89/crimewatch/internal/domain/user"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type UsersRepo struct {
	db  *driver.Database
	col *driver.Collection
	obs Observer
}

func NewUsersRepo(db *driver.Database, obs Observer) *UsersRepo {
	return &UsersRepo{db: db, col: db.Collection(usersCollection), obs: observerOrNoop(obs)}
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	now := storedTime(time.Now())
	u := user.User{
		ID:           uuid.NewString(),
		Email:        strings.TrimSpace(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.obs.ObserveDB("users.create", func() error {
		_, err := r.col.InsertOne(ctx, u)
		return err
	})
	if err != nil {
		if driver.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M, opts ...*options.FindOneOptions) (user.User, error) {
	var u user.User
	err := r.obs.ObserveDB(op, func() error {
		return r.col.FindOne(ctx, filter, opts...).Decode(&u)
	})
	if err != nil {
		if errors.Is(err, driver.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email",
		bson.M{"email": strings.TrimSpace(email)},
		options.FindOne().SetCollation(emailCollation),
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": id})
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.obs.ObserveDB("users.list", func() error {
		cur, err := r.col.Find(ctx, bson.M{},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
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

func (r *UsersRepo) UpdateRole(ctx context.Context, id, role string) error {
	var res *driver.UpdateResult
	err := r.obs.ObserveDB("users.update_role", func() error {
		var err error
		res, err = r.col.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"role": role, "updated_at": storedTime(time.Now())}},
		)
		return err
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var res *driver.DeleteResult
	err := r.obs.ObserveDB("users.delete", func() error {
		var err error
		res, err = r.col.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.obs.ObserveDB("users.count", func() error {
		var err error
		n, err = r.col.CountDocuments(ctx, bson.M{})
		return err
	})
	return int(n), err
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, readpref.Primary())
}
