package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/listing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection    = "users"
	ProductsCollection = "products"
)

// mongoSortFields whitelists the document fields a listing may be ordered by
var mongoSortFields = map[string]string{
	listing.FieldName:      "name",
	listing.FieldPrice:     "price",
	listing.FieldStock:     "stock",
	listing.FieldCreatedAt: "created_at",
	listing.FieldUpdatedAt: "updated_at",
}

// Documents keep ids as canonical uuid strings so they stay readable in the shell.
type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type productDocument struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Price       float64   `bson:"price"`
	Stock       int       `bson:"stock"`
	Active      bool      `bson:"active"`
	Owner       string    `bson:"owner"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type mongoStore struct {
	db       *mongo.Database
	users    UserRepository
	products ProductRepository
}

// NewMongoStore creates a Store backed by a MongoDB database. Indexes are
// expected to exist already (see database.EnsureMongoIndexes).
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{
		db:       db,
		users:    &mongoUserRepository{coll: db.Collection(UsersCollection)},
		products: &mongoProductRepository{coll: db.Collection(ProductsCollection)},
	}
}

func (s *mongoStore) Users() UserRepository       { return s.users }
func (s *mongoStore) Products() ProductRepository { return s.products }

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := userDocument{
		ID:           user.ID.String(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", doc.ID, err)
	}

	return &domain.User{
		ID:           id,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

type mongoProductRepository struct {
	coll *mongo.Collection
}

func (r *mongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, err := r.coll.InsertOne(ctx, toProductDocument(product)); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *mongoProductRepository) Update(ctx context.Context, product *domain.Product) error {
	update := bson.M{"$set": bson.M{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"stock":       product.Stock,
		"active":      product.Active,
		"updated_at":  product.UpdatedAt,
	}}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": product.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *mongoProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return fromProductDocument(doc)
}

func (r *mongoProductRepository) List(ctx context.Context, q listing.Query) ([]*domain.Product, error) {
	opts := options.Find().
		SetSort(buildMongoSort(q.Sort)).
		SetSkip(int64(q.Skip)).
		SetLimit(int64(q.Limit))

	cursor, err := r.coll.Find(ctx, buildMongoFilter(q.Filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	for _, doc := range docs {
		product, err := fromProductDocument(doc)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, nil
}

func (r *mongoProductRepository) Count(ctx context.Context, filter listing.Filter) (int64, error) {
	total, err := r.coll.CountDocuments(ctx, buildMongoFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func buildMongoFilter(filter listing.Filter) bson.M {
	f := bson.M{}
	if filter.ActiveOnly {
		f["active"] = true
	}
	if filter.Search != "" {
		f["$text"] = bson.M{"$search": filter.Search}
	}
	return f
}

func buildMongoSort(sort []listing.SortField) bson.D {
	if len(sort) == 0 {
		sort = listing.DefaultSort
	}

	d := make(bson.D, 0, len(sort)+1)
	for _, s := range sort {
		field, ok := mongoSortFields[s.Field]
		if !ok {
			continue
		}
		dir := 1
		if s.Order == listing.SortOrderDesc {
			dir = -1
		}
		d = append(d, bson.E{Key: field, Value: dir})
	}

	return append(d, bson.E{Key: "_id", Value: 1})
}

func toProductDocument(p *domain.Product) productDocument {
	return productDocument{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Active:      p.Active,
		Owner:       p.Owner.String(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromProductDocument(doc productDocument) (*domain.Product, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid product id %q: %w", doc.ID, err)
	}
	owner, err := uuid.Parse(doc.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", doc.Owner, err)
	}

	return &domain.Product{
		ID:          id,
		Name:        doc.Name,
		Description: doc.Description,
		Price:       doc.Price,
		Stock:       doc.Stock,
		Active:      doc.Active,
		Owner:       owner,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}
