package infrastructure

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Agurato/filmorate/internal/model"
)

// likeToRegex translates a SQL LIKE substring into an anchorless regex: "%" and "_" stay wildcards
func likeToRegex(s string) string {
	quoted := regexp.QuoteMeta(s)
	quoted = strings.ReplaceAll(quoted, "%", ".*")
	return strings.ReplaceAll(quoted, "_", ".")
}

func stage(name string, value any) bson.D {
	return bson.D{{Key: name, Value: value}}
}

// withLikeCount adds the like_count field to films and sorts by it, ties by ascending ID
func (m *MongoDB) withLikeCount() []bson.D {
	return []bson.D{
		stage("$lookup", bson.D{
			{Key: "from", Value: m.likesColl.Name()},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "film_id"},
			{Key: "as", Value: "likes"},
		}),
		stage("$addFields", bson.D{{Key: "like_count", Value: bson.D{{Key: "$size", Value: "$likes"}}}}),
		stage("$sort", bson.D{{Key: "like_count", Value: -1}, {Key: "_id", Value: 1}}),
	}
}

// withRating joins the rating of films and drops the working fields
func (m *MongoDB) withRating() []bson.D {
	return []bson.D{
		stage("$lookup", bson.D{
			{Key: "from", Value: m.ratingsColl.Name()},
			{Key: "localField", Value: "rating_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "rating"},
		}),
		stage("$unwind", "$rating"),
		stage("$project", bson.D{{Key: "likes", Value: 0}, {Key: "like_count", Value: 0}, {Key: "directors", Value: 0}}),
	}
}

// aggregateFilms runs a pipeline on the films collection and maps the results.
// The pipeline order is kept: $lookup and $unwind do not reorder documents.
func (m *MongoDB) aggregateFilms(ctx context.Context, op string, stages ...[]bson.D) ([]model.Film, error) {
	pipeline := mongo.Pipeline{}
	for _, s := range stages {
		pipeline = append(pipeline, s...)
	}
	cur, err := m.filmsColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	var results []filmResult
	if err := cur.All(ctx, &results); err != nil {
		return nil, model.NewStoreError(op, err)
	}
	return lo.Map(results, func(r filmResult, _ int) model.Film { return r.toFilm() }), nil
}

// likeGroup is the likes of one film grouped by GetCommonFilms
type likeGroup struct {
	FilmID int64 `bson:"_id"`
}

func match(filter bson.M) []bson.D {
	return []bson.D{stage("$match", filter)}
}

func sortByID() []bson.D {
	return []bson.D{stage("$sort", bson.D{{Key: "_id", Value: 1}})}
}

// GetFilmFromID returns a film without its associations
func (m *MongoDB) GetFilmFromID(ctx context.Context, id int64) (film *model.Film, err error) {
	defer m.observe("get_film", time.Now(), &err)
	films, err := m.aggregateFilms(ctx, "get_film", match(bson.M{"_id": id}), m.withRating())
	if err != nil {
		return nil, err
	}
	if len(films) == 0 {
		return nil, model.NewNotFoundError("film", id)
	}
	return &films[0], nil
}

// GetFilms returns every film, by ascending ID
func (m *MongoDB) GetFilms(ctx context.Context) (films []model.Film, err error) {
	defer m.observe("get_films", time.Now(), &err)
	return m.aggregateFilms(ctx, "get_films", sortByID(), m.withRating())
}

// GetPopularFilms returns the most liked films matching the optional genre and year filters
func (m *MongoDB) GetPopularFilms(ctx context.Context, query model.PopularQuery) (films []model.Film, err error) {
	defer m.observe("get_popular_films", time.Now(), &err)
	filter := bson.M{}
	if query.GenreID != nil {
		filter["genre_ids"] = *query.GenreID
	}
	if query.Year != nil {
		start := time.Date(*query.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		filter["release_date"] = bson.M{"$gte": start, "$lt": start.AddDate(1, 0, 0)}
	}
	limit := []bson.D{stage("$limit", int64(query.Count))}
	return m.aggregateFilms(ctx, "get_popular_films", match(filter), m.withLikeCount(), limit, m.withRating())
}

// GetDirectorFilms returns the films of a director sorted by release date or by likes
func (m *MongoDB) GetDirectorFilms(ctx context.Context, directorID int64, sortBy model.DirectorSort) (films []model.Film, err error) {
	defer m.observe("get_director_films", time.Now(), &err)
	filter := match(bson.M{"director_ids": directorID})
	switch sortBy {
	case model.SortByYear:
		byDate := []bson.D{stage("$sort", bson.D{{Key: "release_date", Value: 1}, {Key: "_id", Value: 1}})}
		return m.aggregateFilms(ctx, "get_director_films", filter, byDate, m.withRating())
	case model.SortByLikes:
		return m.aggregateFilms(ctx, "get_director_films", filter, m.withLikeCount(), m.withRating())
	}
	return nil, model.NewValidationError(model.FieldError{Field: "sortBy", Message: fmt.Sprintf("unknown sort %q", sortBy)})
}

// SearchFilms returns the films whose title and/or director name contains query, most liked first
func (m *MongoDB) SearchFilms(ctx context.Context, query string, by model.SearchBy) (films []model.Film, err error) {
	defer m.observe("search_films", time.Now(), &err)
	pattern := bson.M{"$regex": likeToRegex(fold(query))}

	var (
		or     bson.A
		lookup []bson.D
	)
	if by.Title() {
		or = append(or, bson.M{"name_folded": pattern})
	}
	if by.Director() {
		lookup = []bson.D{stage("$lookup", bson.D{
			{Key: "from", Value: m.directorsColl.Name()},
			{Key: "localField", Value: "director_ids"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "directors"},
		})}
		or = append(or, bson.M{"directors.name_folded": pattern})
	}
	if len(or) == 0 {
		return []model.Film{}, nil
	}
	return m.aggregateFilms(ctx, "search_films", lookup, match(bson.M{"$or": or}), m.withLikeCount(), m.withRating())
}

// GetCommonFilms returns the films liked by both users.
// Likes of the two users are grouped by film, and only films liked more than once are kept.
func (m *MongoDB) GetCommonFilms(ctx context.Context, userID, friendID int64) (films []model.Film, err error) {
	defer m.observe("get_common_films", time.Now(), &err)
	cur, err := m.likesColl.Aggregate(ctx, mongo.Pipeline{
		stage("$match", bson.M{"user_id": bson.M{"$in": bson.A{userID, friendID}}}),
		stage("$group", bson.D{{Key: "_id", Value: "$film_id"}, {Key: "users", Value: bson.M{"$addToSet": "$user_id"}}}),
		stage("$match", bson.M{"users.1": bson.M{"$exists": true}}),
	})
	if err != nil {
		return nil, model.NewStoreError("get_common_films", err)
	}
	var groups []likeGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, model.NewStoreError("get_common_films", err)
	}
	ids := lo.Map(groups, func(g likeGroup, _ int) int64 { return g.FilmID })
	return m.filmsWithIDs(ctx, "get_common_films", ids)
}

// GetFilmsLikedByUser returns the films liked by a user, by ascending ID
func (m *MongoDB) GetFilmsLikedByUser(ctx context.Context, userID int64) (films []model.Film, err error) {
	defer m.observe("get_films_liked_by_user", time.Now(), &err)
	cur, err := m.likesColl.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, model.NewStoreError("get_films_liked_by_user", err)
	}
	var likes []model.Like
	if err := cur.All(ctx, &likes); err != nil {
		return nil, model.NewStoreError("get_films_liked_by_user", err)
	}
	ids := lo.Map(likes, func(l model.Like, _ int) int64 { return l.FilmID })
	return m.filmsWithIDs(ctx, "get_films_liked_by_user", ids)
}

func (m *MongoDB) filmsWithIDs(ctx context.Context, op string, ids []int64) ([]model.Film, error) {
	if len(ids) == 0 {
		return []model.Film{}, nil
	}
	return m.aggregateFilms(ctx, op, match(bson.M{"_id": bson.M{"$in": ids}}), sortByID(), m.withRating())
}

// CreateFilm inserts the scalar fields of a film and sets its ID
func (m *MongoDB) CreateFilm(ctx context.Context, film *model.Film) (err error) {
	defer m.observe("create_film", time.Now(), &err)
	if err := m.checkRating(ctx, "create_film", film.Rating.ID); err != nil {
		return err
	}
	id, err := m.nextID(ctx, "films")
	if err != nil {
		return model.NewStoreError("create_film", err)
	}
	doc := filmDocument{
		ID:          id,
		Name:        film.Name,
		NameFolded:  fold(film.Name),
		Description: film.Description,
		ReleaseDate: film.ReleaseDate.Time,
		Duration:    film.Duration,
		RatingID:    film.Rating.ID,
		GenreIDs:    []int64{},
		DirectorIDs: []int64{},
	}
	if _, err := m.filmsColl.InsertOne(ctx, doc); err != nil {
		return model.NewStoreError("create_film", err)
	}
	film.ID = id
	return nil
}

// UpdateFilm overwrites the scalar fields of a film
func (m *MongoDB) UpdateFilm(ctx context.Context, film *model.Film) (err error) {
	defer m.observe("update_film", time.Now(), &err)
	if err := m.checkRating(ctx, "update_film", film.Rating.ID); err != nil {
		return err
	}
	res, err := m.filmsColl.UpdateOne(ctx, bson.M{"_id": film.ID}, bson.M{"$set": bson.M{
		"name":         film.Name,
		"name_folded":  fold(film.Name),
		"description":  film.Description,
		"release_date": film.ReleaseDate.Time,
		"duration":     film.Duration,
		"rating_id":    film.Rating.ID,
	}})
	if err != nil {
		return model.NewStoreError("update_film", err)
	}
	if res.MatchedCount == 0 {
		return model.NewNotFoundError("film", film.ID)
	}
	return nil
}

// DeleteFilm deletes a film and its likes
func (m *MongoDB) DeleteFilm(ctx context.Context, id int64) (err error) {
	defer m.observe("delete_film", time.Now(), &err)
	del, err := m.filmsColl.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return model.NewStoreError("delete_film", err)
	}
	if del.DeletedCount == 0 {
		return model.NewNotFoundError("film", id)
	}
	if _, err := m.likesColl.DeleteMany(ctx, bson.M{"film_id": id}); err != nil {
		return model.NewStoreError("delete_film", err)
	}
	return nil
}

func (m *MongoDB) checkRating(ctx context.Context, op string, ratingID int64) error {
	count, err := m.ratingsColl.CountDocuments(ctx, bson.M{"_id": ratingID}, options.Count().SetLimit(1))
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if count == 0 {
		return model.NewStoreError(op, fmt.Errorf("unknown rating %d", ratingID))
	}
	return nil
}

// AddFilmGenres associates genres to a film. Existing pairs are ignored.
func (m *MongoDB) AddFilmGenres(ctx context.Context, filmID int64, genreIDs ...int64) (err error) {
	defer m.observe("add_film_genres", time.Now(), &err)
	return m.addToSet(ctx, "add_film_genres", m.genresColl, "genre_ids", filmID, genreIDs)
}

// AddFilmDirectors associates directors to a film. Existing pairs are ignored.
func (m *MongoDB) AddFilmDirectors(ctx context.Context, filmID int64, directorIDs ...int64) (err error) {
	defer m.observe("add_film_directors", time.Now(), &err)
	return m.addToSet(ctx, "add_film_directors", m.directorsColl, "director_ids", filmID, directorIDs)
}

// addToSet checks that every id references a document of refColl, then adds them to the film field
func (m *MongoDB) addToSet(ctx context.Context, op string, refColl *mongo.Collection, field string, filmID int64, ids []int64) error {
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		return nil
	}
	count, err := refColl.CountDocuments(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if count != int64(len(ids)) {
		return model.NewStoreError(op, fmt.Errorf("unknown %s reference in %v", refColl.Name(), ids))
	}
	res, err := m.filmsColl.UpdateOne(ctx, bson.M{"_id": filmID}, bson.M{"$addToSet": bson.M{field: bson.M{"$each": ids}}})
	if err != nil {
		return model.NewStoreError(op, err)
	}
	if res.MatchedCount == 0 {
		return model.NewNotFoundError("film", filmID)
	}
	return nil
}

// RemoveFilmGenre dissociates a genre from a film
func (m *MongoDB) RemoveFilmGenre(ctx context.Context, filmID, genreID int64) (err error) {
	defer m.observe("remove_film_genre", time.Now(), &err)
	if _, err := m.filmsColl.UpdateOne(ctx, bson.M{"_id": filmID}, bson.M{"$pull": bson.M{"genre_ids": genreID}}); err != nil {
		return model.NewStoreError("remove_film_genre", err)
	}
	return nil
}

// RemoveFilmDirector dissociates a director from a film
func (m *MongoDB) RemoveFilmDirector(ctx context.Context, filmID, directorID int64) (err error) {
	defer m.observe("remove_film_director", time.Now(), &err)
	if _, err := m.filmsColl.UpdateOne(ctx, bson.M{"_id": filmID}, bson.M{"$pull": bson.M{"director_ids": directorID}}); err != nil {
		return model.NewStoreError("remove_film_director", err)
	}
	return nil
}

// filmAssociations returns the genre and director IDs of the given films
func (m *MongoDB) filmAssociations(ctx context.Context, op string, filmIDs []int64) ([]filmDocument, error) {
	opts := options.Find().SetProjection(bson.M{"genre_ids": 1, "director_ids": 1})
	cur, err := m.filmsColl.Find(ctx, bson.M{"_id": bson.M{"$in": filmIDs}}, opts)
	if err != nil {
		return nil, model.NewStoreError(op, err)
	}
	var docs []filmDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, model.NewStoreError(op, err)
	}
	return docs, nil
}

// GetFilmsGenres returns the genres of the given films, sorted by ID, keyed by film ID
func (m *MongoDB) GetFilmsGenres(ctx context.Context, filmIDs ...int64) (genres map[int64][]model.Genre, err error) {
	defer m.observe("get_films_genres", time.Now(), &err)
	genres = make(map[int64][]model.Genre, len(filmIDs))
	if len(filmIDs) == 0 {
		return genres, nil
	}
	docs, err := m.filmAssociations(ctx, "get_films_genres", filmIDs)
	if err != nil {
		return nil, err
	}
	ids := lo.Uniq(lo.FlatMap(docs, func(d filmDocument, _ int) []int64 { return d.GenreIDs }))
	if len(ids) == 0 {
		return genres, nil
	}

	cur, err := m.genresColl.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, model.NewStoreError("get_films_genres", err)
	}
	var all []model.Genre
	if err := cur.All(ctx, &all); err != nil {
		return nil, model.NewStoreError("get_films_genres", err)
	}
	byID := lo.KeyBy(all, func(g model.Genre) int64 { return g.ID })

	for _, d := range docs {
		for _, id := range d.GenreIDs {
			if g, ok := byID[id]; ok {
				genres[d.ID] = append(genres[d.ID], g)
			}
		}
		sort.Slice(genres[d.ID], func(i, j int) bool { return genres[d.ID][i].ID < genres[d.ID][j].ID })
	}
	return genres, nil
}

// GetFilmsDirectors returns the directors of the given films, sorted by ID, keyed by film ID
func (m *MongoDB) GetFilmsDirectors(ctx context.Context, filmIDs ...int64) (directors map[int64][]model.Director, err error) {
	defer m.observe("get_films_directors", time.Now(), &err)
	directors = make(map[int64][]model.Director, len(filmIDs))
	if len(filmIDs) == 0 {
		return directors, nil
	}
	docs, err := m.filmAssociations(ctx, "get_films_directors", filmIDs)
	if err != nil {
		return nil, err
	}
	ids := lo.Uniq(lo.FlatMap(docs, func(d filmDocument, _ int) []int64 { return d.DirectorIDs }))
	if len(ids) == 0 {
		return directors, nil
	}

	cur, err := m.directorsColl.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, model.NewStoreError("get_films_directors", err)
	}
	var all []directorDocument
	if err := cur.All(ctx, &all); err != nil {
		return nil, model.NewStoreError("get_films_directors", err)
	}
	byID := lo.KeyBy(all, func(d directorDocument) int64 { return d.ID })

	for _, d := range docs {
		for _, id := range d.DirectorIDs {
			if dir, ok := byID[id]; ok {
				directors[d.ID] = append(directors[d.ID], model.Director{ID: dir.ID, Name: dir.Name})
			}
		}
		sort.Slice(directors[d.ID], func(i, j int) bool { return directors[d.ID][i].ID < directors[d.ID][j].ID })
	}
	return directors, nil
}
