package model

// User is only known to the catalog through its identity and its likes
type User struct {
	ID       int64  `json:"id" bson:"_id"`
	Email    string `json:"email" bson:"email" validate:"required,email"`
	Login    string `json:"login" bson:"login" validate:"notblank,nospace"`
	Name     string `json:"name" bson:"name"`
	Birthday Date   `json:"birthday" bson:"-"`
}

// Like is a (user, film) relation. A user likes a given film at most once.
type Like struct {
	UserID int64 `json:"userId" bson:"user_id"`
	FilmID int64 `json:"filmId" bson:"film_id"`
}
