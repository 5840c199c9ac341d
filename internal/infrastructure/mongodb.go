package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Agurato/filmorate/internal/metrics"
	"github.com/Agurato/filmorate/internal/model"
)

const mongoBackend = "mongodb"

// MongoDB is the document film store.
// Associations are ID arrays kept as sets with $addToSet; likes live in their own collection
// with a unique (user_id, film_id) index. Integer IDs come from the counters collection.
type MongoDB struct {
	client *mongo.Client

	filmsColl     *mongo.Collection
	ratingsColl   *mongo.Collection
	genresColl    *mongo.Collection
	directorsColl *mongo.Collection
	usersColl     *mongo.Collection
	likesColl     *mongo.Collection
	countersColl  *mongo.Collection
}

type filmDocument struct {
	ID          int64     `bson:"_id"`
	Name        string    `bson:"name"`
	NameFolded  string    `bson:"name_folded"`
	Description string    `bson:"description"`
	ReleaseDate time.Time `bson:"release_date"`
	Duration    int       `bson:"duration"`
	RatingID    int64     `bson:"rating_id"`
	GenreIDs    []int64   `bson:"genre_ids"`
	DirectorIDs []int64   `bson:"director_ids"`
}

// filmResult is a film document joined with its rating by filmPipeline
type filmResult struct {
	filmDocument `bson:",inline"`
	Rating       model.Rating `bson:"rating"`
}

func (r filmResult) toFilm() model.Film {
	return model.Film{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ReleaseDate: model.Date{Time: r.ReleaseDate.UTC()},
		Duration:    r.Duration,
		Rating:      r.Rating,
	}
}

type directorDocument struct {
	ID         int64  `bson:"_id"`
	Name       string `bson:"name"`
	NameFolded string `bson:"name_folded"`
}

type userDocument struct {
	ID       int64      `bson:"_id"`
	Email    string     `bson:"email"`
	Login    string     `bson:"login"`
	Name     string     `bson:"name"`
	Birthday *time.Time `bson:"birthday,omitempty"`
}

var (
	defaultRatings = []model.Rating{{ID: 1, Name: "G"}, {ID: 2, Name: "PG"}, {ID: 3, Name: "PG-13"}, {ID: 4, Name: "R"}, {ID: 5, Name: "NC-17"}}
	defaultGenres  = []model.Genre{{ID: 1, Name: "Comedy"}, {ID: 2, Name: "Drama"}, {ID: 3, Name: "Cartoon"}, {ID: 4, Name: "Thriller"}, {ID: 5, Name: "Documentary"}, {ID: 6, Name: "Action"}}
)

// NewMongoDB connects to the database at uri, creates the indexes and the default ratings and genres
func NewMongoDB(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("could not ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	m := &MongoDB{
		client:        client,
		filmsColl:     db.Collection("films"),
		ratingsColl:   db.Collection("ratings"),
		genresColl:    db.Collection("genres"),
		directorsColl: db.Collection("directors"),
		usersColl:     db.Collection("users"),
		likesColl:     db.Collection("likes"),
		countersColl:  db.Collection("counters"),
	}
	if err := m.init(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", dbName).Msg("Using mongodb database")
	return m, nil
}

func (m *MongoDB) init(ctx context.Context) error {
	_, err := m.likesColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "film_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "film_id", Value: 1}}},
	})
	if err != nil {
		return model.NewStoreError("create_indexes", err)
	}
	_, err = m.filmsColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "genre_ids", Value: 1}}},
		{Keys: bson.D{{Key: "director_ids", Value: 1}}},
	})
	if err != nil {
		return model.NewStoreError("create_indexes", err)
	}

	upsert := options.Update().SetUpsert(true)
	for _, r := range defaultRatings {
		if _, err := m.ratingsColl.UpdateOne(ctx, bson.M{"_id": r.ID}, bson.M{"$setOnInsert": bson.M{"name": r.Name}}, upsert); err != nil {
			return model.NewStoreError("seed_ratings", err)
		}
	}
	for _, g := range defaultGenres {
		if _, err := m.genresColl.UpdateOne(ctx, bson.M{"_id": g.ID}, bson.M{"$setOnInsert": bson.M{"name": g.Name}}, upsert); err != nil {
			return model.NewStoreError("seed_genres", err)
		}
	}
	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close() error {
	return m.client.Disconnect(context.Background())
}

func (m *MongoDB) observe(op string, start time.Time, err *error) {
	metrics.ObserveQuery(mongoBackend, op, start, err)
	if *err != nil && errors.Is(*err, model.ErrStore) {
		log.Error().Err(*err).Str("op", op).Msg("MongoDB operation failed")
	}
}

// nextID increments and returns the sequence of a collection
func (m *MongoDB) nextID(ctx context.Context, collection string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.countersColl.FindOneAndUpdate(ctx, bson.M{"_id": collection}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	return counter.Seq, err
}

// IsFilmPresent checks if a film with this ID exists
func (m *MongoDB) IsFilmPresent(ctx context.Context, id int64) (present bool, err error) {
	defer m.observe("is_film_present", time.Now(), &err)
	return m.exists(ctx, m.filmsColl, "is_film_present", id)
}

// IsUserPresent checks if a user with this ID exists
func (m *MongoDB) IsUserPresent(ctx context.Context, id int64) (present bool, err error) {
	defer m.observe("is_user_present", time.Now(), &err)
	return m.exists(ctx, m.usersColl, "is_user_present", id)
}

// IsRatingPresent checks if an age rating with this ID exists
func (m *MongoDB) IsRatingPresent(ctx context.Context, id int64) (present bool, err error) {
	defer m.observe("is_rating_present", time.Now(), &err)
	return m.exists(ctx, m.ratingsColl, "is_rating_present", id)
}

// MissingGenres returns the IDs that do not denote a genre
func (m *MongoDB) MissingGenres(ctx context.Context, ids ...int64) (missing []int64, err error) {
	defer m.observe("missing_genres", time.Now(), &err)
	return m.missing(ctx, m.genresColl, "missing_genres", ids)
}

// MissingDirectors returns the IDs that do not denote a director
func (m *MongoDB) MissingDirectors(ctx context.Context, ids ...int64) (missing []int64, err error) {
	defer m.observe("missing_directors", time.Now(), &err)
	return m.missing(ctx, m.directorsColl, "missing_directors", ids)
}

func (m *MongoDB) missing(ctx context.Context, coll *mongo.Collection, op string, ids []int64) ([]int64, error) {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return []int64{}, nil
	}
	found, err := coll.Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	foundIDs := make([]int64, 0, len(found))
	for _, id := range found {
		switch v := id.(type) {
		case int64:
			foundIDs = append(foundIDs, v)
		case int32:
			foundIDs = append(foundIDs, int64(v))
		}
	}
	return lo.Without(ids, foundIDs...), nil
}

func (m *MongoDB) exists(ctx context.Context, coll *mongo.Collection, op string, id int64) (bool, error) {
	count, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, model.NewStoreError(op, err)
	}
	return count > 0, nil
}

// GetGenres returns every genre, by ascending ID
func (m *MongoDB) GetGenres(ctx context.Context) (genres []model.Genre, err error) {
	defer m.observe("get_genres", time.Now(), &err)
	cur, err := m.genresColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, model.NewStoreError("get_genres", err)
	}
	genres = []model.Genre{}
	if err := cur.All(ctx, &genres); err != nil {
		return nil, model.NewStoreError("get_genres", err)
	}
	return genres, nil
}

// GetRatings returns every age rating, by ascending ID
func (m *MongoDB) GetRatings(ctx context.Context) (ratings []model.Rating, err error) {
	defer m.observe("get_ratings", time.Now(), &err)
	cur, err := m.ratingsColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, model.NewStoreError("get_ratings", err)
	}
	ratings = []model.Rating{}
	if err := cur.All(ctx, &ratings); err != nil {
		return nil, model.NewStoreError("get_ratings", err)
	}
	return ratings, nil
}

// CreateDirector inserts a director and sets its ID
func (m *MongoDB) CreateDirector(ctx context.Context, director *model.Director) (err error) {
	defer m.observe("create_director", time.Now(), &err)
	id, err := m.nextID(ctx, "directors")
	if err != nil {
		return model.NewStoreError("create_director", err)
	}
	doc := directorDocument{ID: id, Name: director.Name, NameFolded: fold(director.Name)}
	if _, err := m.directorsColl.InsertOne(ctx, doc); err != nil {
		return model.NewStoreError("create_director", err)
	}
	director.ID = id
	return nil
}

// CreateUser inserts a user and sets its ID
func (m *MongoDB) CreateUser(ctx context.Context, user *model.User) (err error) {
	defer m.observe("create_user", time.Now(), &err)
	id, err := m.nextID(ctx, "users")
	if err != nil {
		return model.NewStoreError("create_user", err)
	}
	doc := userDocument{ID: id, Email: user.Email, Login: user.Login, Name: user.Name}
	if !user.Birthday.IsZero() {
		doc.Birthday = &user.Birthday.Time
	}
	if _, err := m.usersColl.InsertOne(ctx, doc); err != nil {
		return model.NewStoreError("create_user", err)
	}
	user.ID = id
	return nil
}

// AddLike records that a user likes a film. Liking twice is a no-op.
func (m *MongoDB) AddLike(ctx context.Context, like model.Like) (err error) {
	defer m.observe("add_like", time.Now(), &err)
	_, err = m.likesColl.UpdateOne(ctx,
		bson.M{"user_id": like.UserID, "film_id": like.FilmID},
		bson.M{"$setOnInsert": bson.M{"user_id": like.UserID, "film_id": like.FilmID}},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return model.NewStoreError("add_like", err)
	}
	return nil
}

// RemoveLike removes the like of a user on a film
func (m *MongoDB) RemoveLike(ctx context.Context, like model.Like) (err error) {
	defer m.observe("remove_like", time.Now(), &err)
	if _, err := m.likesColl.DeleteOne(ctx, bson.M{"user_id": like.UserID, "film_id": like.FilmID}); err != nil {
		return model.NewStoreError("remove_like", err)
	}
	return nil
}
