package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domaincars "carrental/internal/domain/cars"
	domainuser "carrental/internal/domain/user"
)

// CarCatalog reads the car collection. Car CRUD lives elsewhere.
type CarCatalog struct {
	col *mongo.Collection
}

func (c *CarCatalog) ByID(ctx context.Context, id domaincars.CarID) (*domaincars.Car, error) {
	var doc carDocument
	if err := c.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincars.ErrCarNotFound
		}
		return nil, translate(err)
	}
	return doc.toCar(), nil
}

func (c *CarCatalog) ListByOwner(ctx context.Context, owner domaincars.OwnerID) ([]*domaincars.Car, error) {
	cur, err := c.col.Find(ctx, bson.M{"owner_id": string(owner)})
	if err != nil {
		return nil, translate(err)
	}
	var docs []carDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domaincars.Car, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toCar())
	}
	return out, nil
}

type UserDirectory struct {
	col *mongo.Collection
}

type userDocument struct {
	ID    string `bson:"_id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
}

func (d *UserDirectory) ByID(ctx context.Context, id domainuser.ID) (*domainuser.Profile, error) {
	var doc userDocument
	if err := d.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, translate(err)
	}
	return &domainuser.Profile{ID: domainuser.ID(doc.ID), Name: doc.Name, Email: doc.Email}, nil
}
