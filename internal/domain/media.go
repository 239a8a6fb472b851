package domain

// DefaultStatus is applied when a caller does not supply a status.
const DefaultStatus = "Wishlist"

// Conventional values. None of them are enforced by the store.
const (
	MediaTypeMovie  = "Movie"
	MediaTypeSeries = "Series"

	StatusWishlist  = "Wishlist"
	StatusWatching  = "Watching"
	StatusCompleted = "Completed"
)

// MediaFields holds the caller-controlled attributes of a media record. It is
// the full payload of both create and update; id and current episode are owned
// by the store.
type MediaFields struct {
	Title         string
	MediaType     string
	PosterURL     *string
	Director      *string
	Genre         *string
	Platform      *string
	Status        string
	Rating        *float64
	Review        *string
	TotalEpisodes *int
}

// Media represents a tracked movie or show.
type Media struct {
	ID int64
	MediaFields
	CurrentEpisode int
}
